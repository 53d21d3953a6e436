package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Where a binding physically lives.
type sourceKind int

const (
	srcGPIO sourceKind = iota
	srcExpander
)

// Assignment sentinels; anything > 0 is a keycode.
const (
	keyNone   = 0  // monitored input with no key attached (pinch-only pins)
	keyGround = -1 // driven low as a spare ground point
)

type binding struct {
	src  sourceKind
	pin  int // GPIO number, or bit index on the expander
	key  int // keycode, keyNone or keyGround
	intr bool // the expander's interrupt line
}

type pinRef struct {
	src sourceKind
	pin int
}

func (b binding) ref() pinRef {
	return pinRef{src: b.src, pin: b.pin}
}

func (r pinRef) String() string {
	if r.src == srcExpander {
		return fmt.Sprintf("E%d", r.pin)
	}
	return strconv.Itoa(r.pin)
}

type expanderDecl struct {
	addr   byte
	intPin int
}

// pinConfig is the reloadable unit: everything the daemon knows about
// pins comes from here and is swapped wholesale on reload.
type pinConfig struct {
	bindings []binding       // sorted by (src, pin); unique per pin
	pinchSet map[pinRef]bool // combo that fires pinchKey
	pinchKey int
	expander *expanderDecl
}

const (
	maxGPIOPin     = 31 // GPPUDCLK0 covers one 32-bit bank
	maxExpanderBit = 15
)

// loadPinConfig reads and parses the config file.  Only the open/read
// error propagates (the caller keeps its previous config in that case);
// bad lines inside the file are warned about and skipped.
func loadPinConfig(path string, defaultAddr byte) (*pinConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parsePinConfig(f, defaultAddr), nil
}

// parsePinConfig runs the hand-rolled tokenizer: one command per line,
// whitespace-delimited tokens, '#' starts a comment anywhere a token
// could begin.
func parsePinConfig(r io.Reader, defaultAddr byte) *pinConfig {
	cfg := &pinConfig{pinchSet: make(map[pinRef]bool)}
	bound := make(map[pinRef]binding)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		tokens := tokenize(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		cmd, args := tokens[0], tokens[1:]

		switch {
		case strings.EqualFold(cmd, "GND") || strings.EqualFold(cmd, "GROUND"):
			for _, ref := range parsePins(args, lineNo) {
				bound[ref] = binding{src: ref.src, pin: ref.pin, key: keyGround}
			}

		case strings.EqualFold(cmd, "EXPANDER"):
			decl, err := parseExpander(args, defaultAddr)
			if err != nil {
				log.Printf("config line %d: %v (skipped)", lineNo, err)
				continue
			}
			cfg.expander = decl

		default:
			code, ok := keyCode(cmd)
			if !ok {
				log.Printf("config line %d: unknown keyword '%s' (skipped)", lineNo, cmd)
				continue
			}
			refs := parsePins(args, lineNo)
			if len(refs) == 0 {
				continue
			}
			if len(refs) == 1 {
				ref := refs[0]
				bound[ref] = binding{src: ref.src, pin: ref.pin, key: code}
				continue
			}
			// multi-pin key line: this is the pinch combo.
			// Later combo lines overwrite earlier ones.
			cfg.pinchSet = make(map[pinRef]bool, len(refs))
			cfg.pinchKey = code
			for _, ref := range refs {
				cfg.pinchSet[ref] = true
				if _, exists := bound[ref]; !exists {
					// monitored, but no key of its own
					bound[ref] = binding{src: ref.src, pin: ref.pin, key: keyNone}
				}
			}
		}
	}

	cfg.finalize(bound)
	return cfg
}

// tokenize splits a line and drops everything from the first token that
// begins with '#'.
func tokenize(line string) []string {
	fields := strings.Fields(line)
	for i, f := range fields {
		if strings.HasPrefix(f, "#") {
			return fields[:i]
		}
	}
	return fields
}

// parsePins converts pin tokens (decimal, 0x-hex, or E<bit> for
// expander bits).  Bad tokens are warned about and skipped
// individually; the rest of the line still takes effect.
func parsePins(tokens []string, lineNo int) []pinRef {
	refs := make([]pinRef, 0, len(tokens))
	for _, tok := range tokens {
		ref, err := parsePinToken(tok)
		if err != nil {
			log.Printf("config line %d: %v (pin skipped)", lineNo, err)
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

func parsePinToken(tok string) (pinRef, error) {
	if len(tok) > 1 && (tok[0] == 'E' || tok[0] == 'e') {
		bit, err := strconv.ParseInt(tok[1:], 0, 32)
		if err != nil {
			return pinRef{}, fmt.Errorf("bad expander bit '%s'", tok)
		}
		if bit < 0 || bit > maxExpanderBit {
			return pinRef{}, fmt.Errorf("expander bit %d out of range", bit)
		}
		return pinRef{src: srcExpander, pin: int(bit)}, nil
	}
	pin, err := strconv.ParseInt(tok, 0, 32)
	if err != nil {
		return pinRef{}, fmt.Errorf("bad pin '%s'", tok)
	}
	if pin < 0 || pin > maxGPIOPin {
		return pinRef{}, fmt.Errorf("pin %d out of range", pin)
	}
	return pinRef{src: srcGPIO, pin: int(pin)}, nil
}

// EXPANDER [addr] <irqpin>: addr defaults from the daemon settings.
func parseExpander(args []string, defaultAddr byte) (*expanderDecl, error) {
	decl := &expanderDecl{addr: defaultAddr}
	var pinTok string
	switch len(args) {
	case 1:
		pinTok = args[0]
	case 2:
		addr, err := strconv.ParseInt(args[0], 0, 16)
		if err != nil || addr < 0 || addr > 0x7f {
			return nil, fmt.Errorf("bad expander address '%s'", args[0])
		}
		decl.addr = byte(addr)
		pinTok = args[1]
	default:
		return nil, fmt.Errorf("EXPANDER wants [addr] <irqpin>")
	}
	pin, err := strconv.ParseInt(pinTok, 0, 32)
	if err != nil || pin < 0 || pin > maxGPIOPin {
		return nil, fmt.Errorf("bad expander interrupt pin '%s'", pinTok)
	}
	decl.intPin = int(pin)
	return decl, nil
}

// finalize turns the last-wins map into the sorted binding list,
// claims the interrupt pin, and drops stale pinch members.
func (cfg *pinConfig) finalize(bound map[pinRef]binding) {
	if cfg.expander != nil {
		ref := pinRef{src: srcGPIO, pin: cfg.expander.intPin}
		if old, exists := bound[ref]; exists && old.key != keyNone {
			log.Printf("config: pin %d reassigned as expander interrupt", ref.pin)
		}
		bound[ref] = binding{src: srcGPIO, pin: ref.pin, key: keyNone, intr: true}
	} else {
		// expander bits without an expander can't be monitored
		for ref := range bound {
			if ref.src == srcExpander {
				log.Printf("config: E%d bound but no EXPANDER line (dropped)", ref.pin)
				delete(bound, ref)
			}
		}
	}

	// the pinch set only keeps currently-monitored, non-ground pins
	for ref := range cfg.pinchSet {
		b, exists := bound[ref]
		if !exists || b.key == keyGround || b.intr {
			delete(cfg.pinchSet, ref)
		}
	}
	if len(cfg.pinchSet) == 0 {
		cfg.pinchKey = keyNone
	}

	cfg.bindings = make([]binding, 0, len(bound))
	for _, b := range bound {
		cfg.bindings = append(cfg.bindings, b)
	}
	sortBindings(cfg.bindings)
}

func sortBindings(bs []binding) {
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].src != bs[j].src {
			return bs[i].src < bs[j].src
		}
		return bs[i].pin < bs[j].pin
	})
}

// keys lists every keycode the virtual keyboard must advertise.
func (cfg *pinConfig) keys() []int {
	seen := make(map[int]bool)
	var out []int
	for _, b := range cfg.bindings {
		if b.key > 0 && !seen[b.key] {
			seen[b.key] = true
			out = append(out, b.key)
		}
	}
	if cfg.pinchKey > 0 && !seen[cfg.pinchKey] {
		out = append(out, cfg.pinchKey)
	}
	sort.Ints(out)
	return out
}

func (cfg *pinConfig) String() string {
	var sb strings.Builder
	for _, b := range cfg.bindings {
		ref := pinRef{src: b.src, pin: b.pin}
		switch {
		case b.intr:
			fmt.Fprintf(&sb, "%s=INT ", ref)
		case b.key == keyGround:
			fmt.Fprintf(&sb, "%s=GND ", ref)
		case b.key == keyNone:
			fmt.Fprintf(&sb, "%s=- ", ref)
		default:
			fmt.Fprintf(&sb, "%s=%s ", ref, keyName(b.key))
		}
	}
	if len(cfg.pinchSet) > 0 {
		fmt.Fprintf(&sb, "pinch=%s", keyName(cfg.pinchKey))
	}
	return strings.TrimSpace(sb.String())
}
