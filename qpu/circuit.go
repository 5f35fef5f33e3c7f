package qpu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/qiqb-osaka/readout-engine/core"
	"github.com/qiqb-osaka/readout-engine/spam"
	"go.uber.org/zap"
)

// Circuit is the restricted circuit shape this engine executes: basis-state
// preparations followed by measurements. Measured[k] is the qubit read into
// classical bit k, which lands at position k of the counts bitstrings.
type Circuit struct {
	NumQubits int
	NumBits   int
	Excited   []uint32
	Measured  []uint32
}

// NewCalibrationCircuit prepares one joint basis state of the layout and
// measures every layout qubit.
func NewCalibrationCircuit(layout *spam.Layout, prep spam.Preparation) *Circuit {
	qubits := layout.Qubits()
	numQubits := 0
	for _, q := range qubits {
		if int(q)+1 > numQubits {
			numQubits = int(q) + 1
		}
	}
	return &Circuit{
		NumQubits: numQubits,
		NumBits:   len(qubits),
		Excited:   layout.ExcitedQubits(prep),
		Measured:  qubits,
	}
}

// Mapping locates each measured qubit in the counts bitstrings.
func (c *Circuit) Mapping() core.MeasuredQubitMapping {
	m := make(core.MeasuredQubitMapping)
	for bit, q := range c.Measured {
		m[q] = uint32(bit)
	}
	return m
}

func (c *Circuit) QASM() string {
	var b strings.Builder
	b.WriteString("OPENQASM 3;\n")
	b.WriteString("include \"stdgates.inc\";\n")
	fmt.Fprintf(&b, "qubit[%d] q;\n", c.NumQubits)
	fmt.Fprintf(&b, "bit[%d] c;\n", c.NumBits)
	for _, q := range c.Excited {
		fmt.Fprintf(&b, "x q[%d];\n", q)
	}
	for bit, q := range c.Measured {
		fmt.Fprintf(&b, "c[%d] = measure q[%d];\n", bit, q)
	}
	return b.String()
}

var (
	qubitDeclPattern = regexp.MustCompile(`^qubit\[(\d+)\] q;$`)
	bitDeclPattern   = regexp.MustCompile(`^bit\[(\d+)\] c;$`)
	xPattern         = regexp.MustCompile(`^x q\[(\d+)\];$`)
	measurePattern   = regexp.MustCompile(`^c\[(\d+)\] = measure q\[(\d+)\];$`)
)

// ParseCircuit parses the restricted grammar emitted by QASM above: a version
// header, optional include, one qubit and one bit declaration, x statements
// and measure statements. Anything else is rejected.
func ParseCircuit(qasm string) (*Circuit, error) {
	if qasm == "" {
		msg := "no input qasm"
		zap.L().Info(msg)
		return nil, fmt.Errorf(msg)
	}
	circ := &Circuit{NumQubits: -1, NumBits: -1}
	sawVersion := false
	excited := make(map[uint32]struct{})
	measuredQubits := make(map[uint32]struct{})
	measuredBits := make(map[int]uint32)
	for _, rawLine := range strings.Split(qasm, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if !sawVersion {
			if line != "OPENQASM 3;" && line != "OPENQASM 3.0;" {
				return nil, fmt.Errorf("expected an OPENQASM 3 header, got %q", line)
			}
			sawVersion = true
			continue
		}
		if strings.HasPrefix(line, "include ") {
			continue
		}
		if m := qubitDeclPattern.FindStringSubmatch(line); m != nil {
			if circ.NumQubits >= 0 {
				return nil, fmt.Errorf("duplicate qubit declaration")
			}
			circ.NumQubits, _ = strconv.Atoi(m[1])
			continue
		}
		if m := bitDeclPattern.FindStringSubmatch(line); m != nil {
			if circ.NumBits >= 0 {
				return nil, fmt.Errorf("duplicate bit declaration")
			}
			circ.NumBits, _ = strconv.Atoi(m[1])
			continue
		}
		if m := xPattern.FindStringSubmatch(line); m != nil {
			q, err := parseQubitIndex(m[1], circ.NumQubits)
			if err != nil {
				return nil, err
			}
			if _, ok := excited[q]; ok {
				return nil, fmt.Errorf("qubit %d is excited twice", q)
			}
			excited[q] = struct{}{}
			circ.Excited = append(circ.Excited, q)
			continue
		}
		if m := measurePattern.FindStringSubmatch(line); m != nil {
			bit, _ := strconv.Atoi(m[1])
			if circ.NumBits < 0 || bit >= circ.NumBits {
				return nil, fmt.Errorf("classical bit %d is not declared", bit)
			}
			q, err := parseQubitIndex(m[2], circ.NumQubits)
			if err != nil {
				return nil, err
			}
			if _, ok := measuredBits[bit]; ok {
				return nil, fmt.Errorf("classical bit %d is assigned twice", bit)
			}
			if _, ok := measuredQubits[q]; ok {
				return nil, fmt.Errorf("qubit %d is measured twice", q)
			}
			measuredBits[bit] = q
			measuredQubits[q] = struct{}{}
			continue
		}
		return nil, fmt.Errorf("unsupported statement %q", line)
	}
	if !sawVersion {
		return nil, fmt.Errorf("no OPENQASM 3 header")
	}
	if circ.NumQubits < 0 {
		return nil, fmt.Errorf("no qubit declaration")
	}
	if len(measuredBits) == 0 {
		return nil, fmt.Errorf("no measurement")
	}
	if len(measuredBits) != circ.NumBits {
		return nil, fmt.Errorf("%d of %d classical bits are assigned", len(measuredBits), circ.NumBits)
	}
	circ.Measured = make([]uint32, circ.NumBits)
	for bit, q := range measuredBits {
		circ.Measured[bit] = q
	}
	return circ, nil
}

func parseQubitIndex(s string, numQubits int) (uint32, error) {
	q, _ := strconv.Atoi(s)
	if numQubits < 0 || q >= numQubits {
		return 0, fmt.Errorf("qubit %d is not declared", q)
	}
	return uint32(q), nil
}

func circuitValidate(qasm string, maxQubits int) error {
	circ, err := ParseCircuit(qasm)
	if err != nil {
		zap.L().Info(err.Error())
		return err
	}
	if circ.NumQubits > maxQubits {
		msg := fmt.Sprintf("too many qubits in the circuit. the device has %d qubits", maxQubits)
		zap.L().Info(msg)
		return fmt.Errorf(msg)
	}
	return nil
}
