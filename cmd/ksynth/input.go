package main

import "github.com/cwbudde/algo-additive/keyboard"

type actionKind int

const (
	actNote actionKind = iota
	actReleaseAll
	actKnobPrev
	actKnobNext
	actNudgeDown
	actNudgeUp
	actResetKnobs
	actSave
	actQuit
)

type action struct {
	Kind actionKind
	Key  keyboard.Key
}

// parseInput decodes one raw terminal read. Cursor keys arrive as ESC [ X
// within a single read; a lone ESC is the escape note key.
func parseInput(buf []byte) []action {
	var out []action
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b == 0x1b && i+2 < len(buf) && (buf[i+1] == '[' || buf[i+1] == 'O') {
			switch buf[i+2] {
			case 'A':
				out = append(out, action{Kind: actKnobPrev})
			case 'B':
				out = append(out, action{Kind: actKnobNext})
			case 'C':
				out = append(out, action{Kind: actNudgeUp})
			case 'D':
				out = append(out, action{Kind: actNudgeDown})
			}
			i += 2
			continue
		}
		switch b {
		case 0x03, 0x04:
			return append(out, action{Kind: actQuit})
		case 0x13:
			out = append(out, action{Kind: actSave})
		case ' ':
			out = append(out, action{Kind: actReleaseAll})
		case '9':
			out = append(out, action{Kind: actKnobPrev})
		case '0':
			out = append(out, action{Kind: actKnobNext})
		case '-':
			out = append(out, action{Kind: actNudgeDown})
		case '=', '+':
			out = append(out, action{Kind: actNudgeUp})
		case '/':
			out = append(out, action{Kind: actResetKnobs})
		default:
			if k, ok := keyboard.KeyFromRune(rune(b)); ok {
				out = append(out, action{Kind: actNote, Key: k})
			}
		}
	}
	return out
}
