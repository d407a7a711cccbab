package topology

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/config"
)

// ReadText parses the whitespace separated scenario format:
//
//	n m
//	id y x        (n lines, note y before x)
//	id1 id2       (m lines)
//	t source dest (repeated until EOF)
//
// Tokens may be split across lines arbitrarily.
func ReadText(r io.Reader, opts ...graph.Option) (*Scenario, error) {
	tk := newTokenizer(r)

	n, err := tk.int("node count")
	if err != nil {
		return nil, err
	}
	m, err := tk.int("edge count")
	if err != nil {
		return nil, err
	}
	if n < 0 || m < 0 {
		return nil, errors.Errorf("negative counts: %d nodes, %d edges", n, m)
	}

	g := graph.New(opts...)
	for i := 0; i < n; i++ {
		id, err := tk.word(fmt.Sprintf("node %d id", i))
		if err != nil {
			return nil, err
		}
		y, err := tk.float(fmt.Sprintf("node %s y", id))
		if err != nil {
			return nil, err
		}
		x, err := tk.float(fmt.Sprintf("node %s x", id))
		if err != nil {
			return nil, err
		}
		if _, err := g.AddNode(id, x, y); err != nil {
			return nil, err
		}
	}

	for i := 0; i < m; i++ {
		a, err := tk.word(fmt.Sprintf("edge %d first endpoint", i))
		if err != nil {
			return nil, err
		}
		b, err := tk.word(fmt.Sprintf("edge %d second endpoint", i))
		if err != nil {
			return nil, err
		}
		if _, err := g.AddEdge(a, b); err != nil {
			return nil, err
		}
	}

	var admissions []config.Admission
	for {
		tok, err := tk.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		t, err := tk.parseFloat(tok, "admission time")
		if err != nil {
			return nil, err
		}
		src, err := tk.word("admission source")
		if err != nil {
			return nil, err
		}
		dst, err := tk.word("admission destination")
		if err != nil {
			return nil, err
		}
		admissions = append(admissions, config.Admission{Time: t, Source: src, Destination: dst})
	}

	return &Scenario{Graph: g, Admissions: admissions}, nil
}

// WriteText writes g and admissions in the format ReadText reads. Explicit
// edge lengths are not representable and come back as coordinate distances.
func WriteText(w io.Writer, g *graph.Graph, admissions []config.Admission) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", g.NumNodes(), g.NumEdges())
	for _, n := range g.Nodes() {
		fmt.Fprintf(bw, "%s %s %s\n", n.ID, formatFloat(n.Y), formatFloat(n.X))
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(bw, "%s %s\n", g.Node(e.A).ID, g.Node(e.B).ID)
	}
	for _, a := range admissions {
		fmt.Fprintf(bw, "%s %s %s\n", formatFloat(a.Time), a.Source, a.Destination)
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// tokenizer reads whitespace separated words and counts them for error
// messages.
type tokenizer struct {
	s   *bufio.Scanner
	pos int
}

func newTokenizer(r io.Reader) *tokenizer {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	return &tokenizer{s: s}
}

// next returns the next token or io.EOF at the end of input
func (t *tokenizer) next() (string, error) {
	if !t.s.Scan() {
		if err := t.s.Err(); err != nil {
			return "", errors.Wrap(err, "can't scan input")
		}
		return "", io.EOF
	}
	t.pos++
	return t.s.Text(), nil
}

// word returns the next token, which the input must contain
func (t *tokenizer) word(what string) (string, error) {
	tok, err := t.next()
	if err == io.EOF {
		return "", errors.Wrapf(io.ErrUnexpectedEOF, "missing %s after token %d", what, t.pos)
	}
	return tok, err
}

func (t *tokenizer) float(what string) (float64, error) {
	tok, err := t.word(what)
	if err != nil {
		return 0, err
	}
	return t.parseFloat(tok, what)
}

func (t *tokenizer) parseFloat(tok, what string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "token %d (%s)", t.pos, what)
	}
	return v, nil
}

func (t *tokenizer) int(what string) (int, error) {
	tok, err := t.word(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Wrapf(err, "token %d (%s)", t.pos, what)
	}
	return v, nil
}
