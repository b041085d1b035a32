//go:build linux

package hotkey

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// evdev ioctl numbers, see linux/input.h.
const (
	iocRead   = 2
	evKey     = 0x01
	keyMax    = 0x2ff
	keyBytes  = keyMax/8 + 1
	nameBytes = 256

	btnMiddle   = 0x112
	btnSide     = 0x113
	btnExtra    = 0x114
	btnJoystick = 0x120
	btnJoyEnd   = 0x140 // BTN_JOYSTICK..BTN_GAMEPAD range end (exclusive)
)

var inputGlob = "/dev/input/event*"

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | typ<<8 | nr
}

func eviocgname(size int) uintptr { return ioc(iocRead, 'E', 0x06, uintptr(size)) }

func eviocgkey(size int) uintptr { return ioc(iocRead, 'E', 0x18, uintptr(size)) }

func eviocgbit(ev, size int) uintptr { return ioc(iocRead, 'E', 0x20+uintptr(ev), uintptr(size)) }

func ioctlBuf(fd int, req uintptr, buf []byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errno
	}
	return nil
}

func bitSet(bits []byte, code int) bool {
	return code/8 < len(bits) && bits[code/8]&(1<<uint(code%8)) != 0
}

type evdevNode struct {
	fd   int
	path string
	name string
	caps []byte
}

func (n *evdevNode) keyState() ([]byte, error) {
	state := make([]byte, keyBytes)
	if err := ioctlBuf(n.fd, eviocgkey(len(state)), state); err != nil {
		return nil, fmt.Errorf("read key state of %s: %w", n.path, err)
	}
	return state, nil
}

// joystickCodes lists the joystick button codes the node supports, ascending.
func (n *evdevNode) joystickCodes() []int {
	var codes []int
	for code := btnJoystick; code < btnJoyEnd; code++ {
		if bitSet(n.caps, code) {
			codes = append(codes, code)
		}
	}
	return codes
}

func (n *evdevNode) close() { _ = unix.Close(n.fd) }

// openNodes opens every readable event device, sorted by event number.
func openNodes() ([]*evdevNode, error) {
	paths, err := filepath.Glob(inputGlob)
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool { return eventNumber(paths[i]) < eventNumber(paths[j]) })

	var nodes []*evdevNode
	var lastErr error
	for _, p := range paths {
		fd, err := unix.Open(p, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			lastErr = err
			continue
		}
		caps := make([]byte, keyBytes)
		if err := ioctlBuf(fd, eviocgbit(evKey, len(caps)), caps); err != nil {
			_ = unix.Close(fd)
			continue
		}
		name := make([]byte, nameBytes)
		_ = ioctlBuf(fd, eviocgname(len(name)), name)
		nodes = append(nodes, &evdevNode{
			fd:   fd,
			path: p,
			name: strings.TrimRight(string(name), "\x00"),
			caps: caps,
		})
	}
	if len(nodes) == 0 {
		if errors.Is(lastErr, unix.EACCES) {
			return nil, fmt.Errorf("%w: no readable %s (add the user to the 'input' group)", ErrDeviceNotFound, inputGlob)
		}
		return nil, fmt.Errorf("%w: no input devices", ErrDeviceNotFound)
	}
	return nodes, nil
}

func eventNumber(path string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(path), "event"))
	if err != nil {
		return 1 << 30
	}
	return n
}

func closeNodes(nodes []*evdevNode) {
	for _, n := range nodes {
		n.close()
	}
}

func mouseCode(button string) (int, error) {
	switch button {
	case MouseMiddle:
		return btnMiddle, nil
	case MouseX1:
		return btnSide, nil
	case MouseX2:
		return btnExtra, nil
	default:
		return 0, fmt.Errorf("%w: mouse button %q", ErrInvalidBinding, button)
	}
}

// evdevButton is pressed when any of its nodes reports code held. It only
// reports an error when no node could be read.
type evdevButton struct {
	nodes []*evdevNode
	code  int
	label string
}

func (d *evdevButton) Pressed() (bool, error) {
	var lastErr error
	read := 0
	for _, n := range d.nodes {
		state, err := n.keyState()
		if err != nil {
			lastErr = err
			continue
		}
		read++
		if bitSet(state, d.code) {
			return true, nil
		}
	}
	if read == 0 && lastErr != nil {
		return false, lastErr
	}
	return false, nil
}

func (d *evdevButton) Name() string { return d.label }

func (d *evdevButton) Close() error {
	closeNodes(d.nodes)
	d.nodes = nil
	return nil
}

func openMouse(b Binding, log zerolog.Logger) (Device, error) {
	code, err := mouseCode(b.Button)
	if err != nil {
		return nil, err
	}
	nodes, err := openNodes()
	if err != nil {
		return nil, err
	}
	var keep []*evdevNode
	for _, n := range nodes {
		if bitSet(n.caps, code) {
			keep = append(keep, n)
			log.Debug().Str("device", n.name).Str("path", n.path).Msg("Watching mouse device")
		} else {
			n.close()
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("%w: no mouse with button %s", ErrDeviceNotFound, b.Button)
	}
	return &evdevButton{nodes: keep, code: code, label: "evdev mouse " + b.Button}, nil
}

// joystickNodes keeps nodes with joystick buttons and closes the rest.
func joystickNodes(nodes []*evdevNode) []*evdevNode {
	var joys []*evdevNode
	for _, n := range nodes {
		if len(n.joystickCodes()) > 0 {
			joys = append(joys, n)
		} else {
			n.close()
		}
	}
	return joys
}

func openJoystick(b Binding, log zerolog.Logger) (Device, error) {
	if b.Kind == KindVJoy {
		return nil, fmt.Errorf("%w: vJoy is a Windows driver", ErrBackendNotAvailable)
	}
	nodes, err := openNodes()
	if err != nil {
		return nil, err
	}
	joys := joystickNodes(nodes)
	if b.Device >= len(joys) {
		closeNodes(joys)
		return nil, fmt.Errorf("%w: joystick %d (found %d)", ErrDeviceNotFound, b.Device, len(joys))
	}
	node := joys[b.Device]
	for i, n := range joys {
		if i != b.Device {
			n.close()
		}
	}
	codes := node.joystickCodes()
	if b.Index >= len(codes) {
		node.close()
		return nil, fmt.Errorf("%w: %s has %d buttons", ErrDeviceNotFound, node.name, len(codes))
	}
	log.Info().Str("device", node.name).Str("path", node.path).Int("button", b.Index).Msg("Polling joystick button")
	return &evdevButton{nodes: []*evdevNode{node}, code: codes[b.Index], label: b.String()}, nil
}

// JoystickAvailable reports whether any joystick event device is readable.
func JoystickAvailable() bool {
	nodes, err := openNodes()
	if err != nil {
		return false
	}
	joys := joystickNodes(nodes)
	defer closeNodes(joys)
	return len(joys) > 0
}

type evdevScanner struct {
	mice []*evdevNode
	joys []*evdevNode
}

func newScanner() (buttonScanner, error) {
	nodes, err := openNodes()
	if err != nil {
		return nil, err
	}
	s := &evdevScanner{}
	for _, n := range nodes {
		switch {
		case len(n.joystickCodes()) > 0:
			s.joys = append(s.joys, n)
		case bitSet(n.caps, btnMiddle) || bitSet(n.caps, btnSide) || bitSet(n.caps, btnExtra):
			s.mice = append(s.mice, n)
		default:
			n.close()
		}
	}
	return s, nil
}

func (s *evdevScanner) scan() (Binding, bool) {
	for _, n := range s.mice {
		state, err := n.keyState()
		if err != nil {
			continue
		}
		for _, btn := range []string{MouseMiddle, MouseX1, MouseX2} {
			code, _ := mouseCode(btn)
			if bitSet(state, code) {
				return Binding{Kind: KindMouse, Button: btn}, true
			}
		}
	}
	for dev, n := range s.joys {
		state, err := n.keyState()
		if err != nil {
			continue
		}
		for idx, code := range n.joystickCodes() {
			if idx < MaxJoystickButtons && bitSet(state, code) {
				return Binding{Kind: KindJoystick, Device: dev, Index: idx}, true
			}
		}
	}
	return Binding{}, false
}

func (s *evdevScanner) close() {
	closeNodes(s.mice)
	closeNodes(s.joys)
}
