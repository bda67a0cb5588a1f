// Package classify decides whether a process can be attached to with a
// debugger, by pattern-matching its command line for debug-flag syntax.
// Classification is pure and runs lazily in the command/presentation layer;
// the reconciler never consults it.
package classify

import (
	"regexp"
	"strconv"
)

// Kind tags the debuggability of a process.
type Kind int

const (
	// NotDebuggable means no recognized debug flag was found.
	NotDebuggable Kind = iota
	// NodeInspect means the process runs the V8 inspector protocol
	// (--inspect / --inspect-brk).
	NodeInspect
	// LegacyDebug means the process runs the legacy V8 debug protocol
	// (--debug / --debug-brk).
	LegacyDebug
	// ElectronInspect marks an Electron host process without an explicit
	// inspect flag; attaching goes through the host's own mechanism.
	ElectronInspect
)

// String returns the kind's display name.
func (k Kind) String() string {
	switch k {
	case NodeInspect:
		return "inspector"
	case LegacyDebug:
		return "legacy debug"
	case ElectronInspect:
		return "electron"
	default:
		return "not debuggable"
	}
}

// Target is the result of classifying one command line. Port is 0 when the
// flag carried no port number (connect by pid-based attach instead).
type Target struct {
	Kind Kind
	Port int
}

// Debuggable reports whether any attach mechanism applies.
func (t Target) Debuggable() bool {
	return t.Kind != NotDebuggable
}

var (
	// --inspect, --inspect-brk, --inspect=9229, --inspect-brk=0.0.0.0:9229,
	// --inspect-port=9229
	inspectRe = regexp.MustCompile(`--inspect(?:-brk|-port)?(?:=(?:[^\s:]*:)?(\d+))?(?:\s|$)`)
	// --debug, --debug-brk, --debug=5858, --debug-brk=5858
	debugRe = regexp.MustCompile(`--debug(?:-brk)?(?:=(\d+))?(?:\s|$)`)
)

// Classify inspects a command line and reports how (if at all) a debugger
// can connect. A debug flag without an explicit port yields Port 0: connect
// by pid-based attach rather than guessing the runtime's default port.
// electronHost marks processes recognized as Electron embedding hosts;
// without an explicit inspect flag they classify as ElectronInspect.
func Classify(command string, electronHost bool) Target {
	if m := inspectRe.FindStringSubmatch(command); m != nil {
		return Target{Kind: NodeInspect, Port: parsePort(m[1])}
	}
	if m := debugRe.FindStringSubmatch(command); m != nil {
		return Target{Kind: LegacyDebug, Port: parsePort(m[1])}
	}
	if electronHost {
		return Target{Kind: ElectronInspect}
	}
	return Target{Kind: NotDebuggable}
}

func parsePort(s string) int {
	if s == "" {
		return 0
	}
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return 0
	}
	return port
}
