package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Session is the persisted record of a lobby.
//
// Members is ordered by first join. The member at index 0, if any, is the host;
// there is deliberately no separate host flag that could drift from that position.
type Session struct {
	Code        string   `json:"code"`
	TargetColor Color    `json:"targetColor"`
	Members     []Player `json:"members"`
}

// Clone returns a deep copy so callers can transform it without touching the original.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Members = make([]Player, len(s.Members))
	copy(cp.Members, s.Members)
	return &cp
}

// Host returns the username at position 0, or "" for an empty session.
func (s *Session) Host() string {
	if len(s.Members) == 0 {
		return ""
	}
	return s.Members[0].Username
}

// MemberIndex returns the position of username in Members, or -1.
func (s *Session) MemberIndex(username string) int {
	for i, p := range s.Members {
		if p.Username == username {
			return i
		}
	}
	return -1
}

// RoundTarget is a named goal color announced at round start.
type RoundTarget struct {
	Name string `json:"targetName"`
	Hex  string `json:"targetHex"`
}

// Color parses the target's hex code into RGB.
func (t RoundTarget) Color() (Color, error) {
	h := strings.TrimPrefix(t.Hex, "#")
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid hex color %q", t.Hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", t.Hex, err)
	}
	return Color{R: int(v >> 16 & 0xFF), G: int(v >> 8 & 0xFF), B: int(v & 0xFF)}, nil
}
