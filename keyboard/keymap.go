package keyboard

import (
	"hash/fnv"
	"math"
	"strconv"
)

// Key names a physical key of a QWERTY layout.
type Key string

// Special keys that have no printable rune.
const (
	KeyCapsLock Key = "capslock"
	KeyTab      Key = "tab"
	KeyEscape   Key = "escape"
)

// NoteCount is one past the highest note reachable from the keyboard.
const NoteCount = 28

// BaseFrequency is the pitch of note 0.
const BaseFrequency = 110.0

// The four letter rows overlap so that each row continues a few semitones
// below where the next one starts.
var keyNotes = map[Key]int{
	"z": 0, "x": 1, "c": 2, "v": 3, "b": 4, "n": 5, "m": 6, ",": 7, ".": 8,

	KeyCapsLock: 6, "a": 7, "s": 8, "d": 9, "f": 10, "g": 11, "h": 12,
	"j": 13, "k": 14, "l": 15, ";": 16, "'": 17,

	KeyTab: 13, "q": 14, "w": 15, "e": 16, "r": 17, "t": 18, "y": 19,
	"u": 20, "i": 21, "o": 22, "p": 23, "[": 24, "]": 25,

	KeyEscape: 20, "1": 21, "2": 22, "3": 23, "4": 24, "5": 25, "6": 26, "7": 27,
}

// NoteForKey returns the note a key plays.
func NoteForKey(k Key) (int, bool) {
	n, ok := keyNotes[k]
	return n, ok
}

// KeyFromRune maps terminal input to a key. Upper-case letters map to their
// lower-case key.
func KeyFromRune(r rune) (Key, bool) {
	switch r {
	case '\t':
		return KeyTab, true
	case 0x1b:
		return KeyEscape, true
	}
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	k := Key(string(r))
	if _, ok := keyNotes[k]; !ok {
		return "", false
	}
	return k, true
}

// Keys returns every mapped key.
func Keys() []Key {
	out := make([]Key, 0, len(keyNotes))
	for k := range keyNotes {
		out = append(out, k)
	}
	return out
}

// NoteFrequency returns 110 Hz * 2^(note/12).
func NoteFrequency(note int) float32 {
	return float32(BaseFrequency * math.Pow(2, float64(note)/12))
}

// khash is a 32-bit integer finalizer with good avalanche.
func khash(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

// NoteKey names a virtual key for note, for sequencers that address notes
// rather than physical keys.
func NoteKey(note int) Key {
	return Key("note:" + strconv.Itoa(note))
}

func keyHash(k Key) uint32 {
	h := fnv.New32a()
	h.Write([]byte(k))
	return h.Sum32()
}

// VoiceID derives the id of the presses-th strike of key k. The high half
// identifies the key and the low half counts its strikes, so two keys that
// play the same note never share a voice and a quick re-press never retunes
// the tail of the previous strike. Both khash and the odd multiplier are
// bijections, so distinct keys get distinct high halves.
func VoiceID(k Key, presses uint32) uint64 {
	return uint64(khash(12312577*keyHash(k)))<<32 | uint64(31249577+presses)
}
