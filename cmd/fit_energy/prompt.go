package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lucasjlepore/fit-energy/config"
	"github.com/lucasjlepore/fit-energy/pipeline"
)

var errPromptAborted = errors.New("input aborted")

type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func newPrompter(r io.Reader, w io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(r), w: w}
}

// readLine returns one trimmed answer. EOF without an answer aborts.
func (p *prompter) readLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errPromptAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) askPath() (string, error) {
	fmt.Fprint(p.w, "FIT file path: ")
	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	answer = strings.Trim(answer, `"'`)
	if answer == "" {
		return "", pipeline.ErrNoInput
	}
	return answer, nil
}

// askParams asks for every numeric parameter not already set by a flag.
func (p *prompter) askParams(params *config.Params, flagSet func(string) bool) error {
	questions := []struct {
		flag   string
		label  string
		dst    *float64
		bounds config.Bounds
	}{
		{"wall-energy-kwh", "Wall socket energy for the recharge (kWh)", &params.WallEnergyKWh, config.WallEnergyBounds},
		{"wall2battery-eff-pct", "Charger efficiency wall to battery (%)", &params.WallToBatteryEffPct, config.WallToBatteryBounds},
		{"muscle-eff-pct", "Muscular efficiency (%)", &params.MuscleEffPct, config.MuscleEffBounds},
	}
	for _, q := range questions {
		if flagSet(q.flag) {
			continue
		}
		v, err := p.askFloat(q.label, *q.dst, q.bounds)
		if err != nil {
			return err
		}
		*q.dst = v
	}
	return nil
}

// askFloat repeats the question until the answer is empty (default) or a
// number within bounds. A comma decimal separator is accepted.
func (p *prompter) askFloat(label string, def float64, b config.Bounds) (float64, error) {
	for {
		fmt.Fprintf(p.w, "%s [%g]: ", label, def)
		answer, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}
		v, err := strconv.ParseFloat(strings.Replace(answer, ",", ".", 1), 64)
		if err == nil && b.Contains(v) {
			return v, nil
		}
		fmt.Fprintf(p.w, "Please enter a number between %g and %g.\n", b.Min, b.Max)
	}
}
