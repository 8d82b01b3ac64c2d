// Package backend names the audio output implementations. It has no
// dependencies so that settings code can name a backend without linking
// the device drivers.
package backend

import (
	"fmt"
	"strings"
)

// Name identifies an output implementation.
type Name string

const (
	Ebiten Name = "ebiten"
	Oto    Name = "oto"
	Null   Name = "null"
)

// Parse accepts a backend name in any case. The empty string selects Ebiten.
func Parse(name string) (Name, error) {
	switch b := Name(strings.ToLower(strings.TrimSpace(name))); b {
	case Ebiten, Oto, Null:
		return b, nil
	case "":
		return Ebiten, nil
	}
	return "", fmt.Errorf("unknown audio backend %q (expected ebiten|oto|null)", name)
}
