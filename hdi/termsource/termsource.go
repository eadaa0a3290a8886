// Package termsource implements a reference hdi.EventSource that reads
// keyboard input from a terminal in raw mode. It has no native notion of
// key-up: each decoded keypress is emitted as an immediate key_down
// followed by key_up, so the press machine's repeat/hold/double
// derivation sees discrete taps rather than true hold durations — a
// limitation of terminal input, not of the HDI pipeline.
package termsource

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/0202alcc/luvatrix/hdi"
)

// KeyCode identifies a decoded terminal keypress.
type KeyCode int

const (
	KeyUnknown KeyCode = iota
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeySpace
	KeyDelete
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyCtrlC
	KeyCtrlD
)

func (k KeyCode) String() string {
	switch k {
	case KeyEnter:
		return "Enter"
	case KeyEscape:
		return "Escape"
	case KeyBackspace:
		return "Backspace"
	case KeyTab:
		return "Tab"
	case KeySpace:
		return "Space"
	case KeyDelete:
		return "Delete"
	case KeyArrowUp:
		return "ArrowUp"
	case KeyArrowDown:
		return "ArrowDown"
	case KeyArrowLeft:
		return "ArrowLeft"
	case KeyArrowRight:
		return "ArrowRight"
	case KeyCtrlC:
		return "Ctrl+C"
	case KeyCtrlD:
		return "Ctrl+D"
	case KeyA, KeyB, KeyC, KeyD, KeyE, KeyF, KeyG, KeyH, KeyI, KeyJ,
		KeyK, KeyL, KeyM, KeyN, KeyO, KeyP, KeyQ, KeyR, KeyS, KeyT,
		KeyU, KeyV, KeyW, KeyX, KeyY, KeyZ:
		return string(rune('A' + (k - KeyA)))
	case Key0, Key1, Key2, Key3, Key4, Key5, Key6, Key7, Key8, Key9:
		return fmt.Sprintf("%d", k-Key0)
	default:
		return "Unknown"
	}
}

// Modifier is a bitset of held modifier keys, as reported by the
// terminal's CSI modifier parameter.
type Modifier uint8

const (
	ModNone Modifier = 0
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
)

func (m Modifier) has(mod Modifier) bool { return m&mod != 0 }

type rawKey struct {
	Code     KeyCode
	Modifier Modifier
}

// Source is a reference hdi.EventSource backed by terminal stdin.
type Source struct {
	windowID string
	keysCh   chan rawKey
	errCh    chan error
	input    *os.File
	rawState *term.State
}

// New starts a background reader over input (os.Stdin if nil) and
// returns a Source that can be polled by an hdi.Thread. Events carry
// windowID as their WindowID.
func New(input *os.File, windowID string) *Source {
	if input == nil {
		input = os.Stdin
	}
	s := &Source{
		windowID: windowID,
		keysCh:   make(chan rawKey, 64),
		errCh:    make(chan error, 1),
		input:    input,
	}
	go s.readLoop()
	return s
}

// EnableRawMode puts the terminal into raw mode so keys are delivered
// byte-by-byte rather than line-buffered.
func (s *Source) EnableRawMode() error {
	state, err := term.MakeRaw(int(s.input.Fd()))
	if err != nil {
		return err
	}
	s.rawState = state
	return nil
}

// DisableRawMode restores the terminal's prior mode.
func (s *Source) DisableRawMode() error {
	if s.rawState == nil {
		return nil
	}
	return term.Restore(int(s.input.Fd()), s.rawState)
}

func (s *Source) readLoop() {
	reader := bufio.NewReader(s.input)
	for {
		key, err := readKeyBlocking(reader)
		if err != nil {
			s.errCh <- err
			return
		}
		s.keysCh <- key
	}
}

// Poll implements hdi.EventSource. It drains whatever keys have been
// decoded since the last call without blocking.
func (s *Source) Poll(windowActive bool, tsNS int64) ([]hdi.Event, error) {
	var events []hdi.Event
	for {
		select {
		case key := <-s.keysCh:
			name := key.Code.String()
			payload := map[string]any{"key": name}
			events = append(events,
				hdi.Event{TimestampNS: tsNS, WindowID: s.windowID, Device: hdi.DeviceKeyboard, EventType: "key_down", Status: hdi.StatusOK, Payload: payload},
				hdi.Event{TimestampNS: tsNS, WindowID: s.windowID, Device: hdi.DeviceKeyboard, EventType: "key_up", Status: hdi.StatusOK, Payload: payload},
			)
		case err := <-s.errCh:
			return events, err
		default:
			return events, nil
		}
	}
}

func readKeyBlocking(reader *bufio.Reader) (rawKey, error) {
	b, err := reader.ReadByte()
	if err != nil {
		return rawKey{Code: KeyUnknown}, err
	}

	if b == 27 {
		next, err := reader.Peek(1)
		if err != nil || len(next) == 0 {
			return rawKey{Code: KeyEscape}, nil
		}
		if next[0] == '[' {
			reader.ReadByte()
			return parseCSISequence(reader)
		}
		return rawKey{Code: KeyEscape}, nil
	}

	return parseRegularKey(b), nil
}

func parseCSISequence(reader *bufio.Reader) (rawKey, error) {
	var seq []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return rawKey{Code: KeyUnknown}, err
		}
		seq = append(seq, b)
		if (b >= 'A' && b <= 'Z') || b == '~' {
			break
		}
	}
	return decodeCSI(seq), nil
}

func decodeCSI(seq []byte) rawKey {
	s := string(seq)
	switch s {
	case "A":
		return rawKey{Code: KeyArrowUp}
	case "B":
		return rawKey{Code: KeyArrowDown}
	case "C":
		return rawKey{Code: KeyArrowRight}
	case "D":
		return rawKey{Code: KeyArrowLeft}
	case "3~":
		return rawKey{Code: KeyDelete}
	}

	if strings.Contains(s, ";") {
		parts := strings.Split(s, ";")
		if len(parts) != 2 || len(parts[1]) < 2 {
			return rawKey{Code: KeyUnknown}
		}
		modNum, _ := strconv.Atoi(parts[1][:1])
		var mod Modifier
		switch modNum {
		case 2:
			mod = ModShift
		case 3:
			mod = ModAlt
		case 4:
			mod = ModShift | ModAlt
		case 5:
			mod = ModCtrl
		case 6:
			mod = ModCtrl | ModShift
		case 7:
			mod = ModCtrl | ModAlt
		case 8:
			mod = ModCtrl | ModAlt | ModShift
		default:
			mod = ModNone
		}
		switch parts[1][1:] {
		case "A":
			return rawKey{Code: KeyArrowUp, Modifier: mod}
		case "B":
			return rawKey{Code: KeyArrowDown, Modifier: mod}
		case "C":
			return rawKey{Code: KeyArrowRight, Modifier: mod}
		case "D":
			return rawKey{Code: KeyArrowLeft, Modifier: mod}
		}
	}
	return rawKey{Code: KeyUnknown}
}

func parseRegularKey(b byte) rawKey {
	switch b {
	case '\r', '\n':
		return rawKey{Code: KeyEnter}
	case '\t':
		return rawKey{Code: KeyTab}
	case ' ':
		return rawKey{Code: KeySpace}
	case 127, 8:
		return rawKey{Code: KeyBackspace}
	case 3:
		return rawKey{Code: KeyCtrlC, Modifier: ModCtrl}
	case 4:
		return rawKey{Code: KeyCtrlD, Modifier: ModCtrl}
	default:
		switch {
		case b >= '0' && b <= '9':
			return rawKey{Code: KeyCode(int(Key0) + int(b-'0'))}
		case b >= 'a' && b <= 'z':
			return rawKey{Code: KeyCode(int(KeyA) + int(b-'a'))}
		case b >= 'A' && b <= 'Z':
			return rawKey{Code: KeyCode(int(KeyA) + int(b-'A')), Modifier: ModShift}
		default:
			return rawKey{Code: KeyUnknown}
		}
	}
}
