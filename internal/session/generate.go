package session

import (
	"math/rand/v2"

	"github.com/jason-s-yu/chroma/internal/models"
)

const (
	codeLength   = 6
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// DefaultPalette is the fixed list round targets are drawn from.
var DefaultPalette = []models.RoundTarget{
	{Name: "Kiwi Squeeze", Hex: "#C1FFC1"},
	{Name: "Sunset Orange", Hex: "#FE5A1D"},
	{Name: "Ocean Blue", Hex: "#1E90FF"},
	{Name: "Bubblegum Pink", Hex: "#FF69B4"},
	{Name: "Electric Lime", Hex: "#CCFF00"},
}

// RandomCode returns a short upper-case alphanumeric session code.
func RandomCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}

// RandomColor returns a uniformly random RGB color.
func RandomColor() models.Color {
	return models.Color{R: rand.IntN(256), G: rand.IntN(256), B: rand.IntN(256)}
}

// RandomTarget picks one entry of palette.
func RandomTarget(palette []models.RoundTarget) models.RoundTarget {
	return palette[rand.IntN(len(palette))]
}
