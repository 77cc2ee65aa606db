package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is the value of --ui. It implements pflag.Value so bad values are
// rejected while flags parse.
type uiMode string

const (
	uiAuto uiMode = "auto"
	uiOn   uiMode = "on"
	uiOff  uiMode = "off"
)

func (m *uiMode) String() string { return string(*m) }

func (m *uiMode) Type() string { return "mode" }

func (m *uiMode) Set(value string) error {
	switch v := uiMode(strings.ToLower(strings.TrimSpace(value))); v {
	case uiAuto, uiOn, uiOff:
		*m = v
		return nil
	case "":
		*m = uiAuto
		return nil
	}
	return fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// enabled reports whether the progress view should draw for a run writing
// to outputPath. The view draws on stderr; auto mode also keeps it away
// from lowered text going to stdout.
func (m uiMode) enabled(outputPath string) bool {
	switch m {
	case uiOn:
		return true
	case uiOff:
		return false
	}
	toStdout := outputPath == "" || outputPath == "-"
	return !toStdout && isTerminal(os.Stderr)
}
