package scenario

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expect is the assertion language over a process outcome. Every populated
// field is checked; an empty Expect asserts nothing.
type Expect struct {
	ExitCode   *int `json:"exit_code,omitempty"`
	ExitSignal *int `json:"exit_signal,omitempty"`

	StdoutContainsAll []string `json:"stdout_contains_all,omitempty"`
	StdoutContainsAny []string `json:"stdout_contains_any,omitempty"`
	StdoutRegexAll    []string `json:"stdout_regex_all,omitempty"`
	StdoutRegexAny    []string `json:"stdout_regex_any,omitempty"`

	StderrContainsAll []string `json:"stderr_contains_all,omitempty"`
	StderrContainsAny []string `json:"stderr_contains_any,omitempty"`
	StderrRegexAll    []string `json:"stderr_regex_all,omitempty"`
	StderrRegexAny    []string `json:"stderr_regex_any,omitempty"`
}

// HasAssertions reports whether any field is populated.
func (e Expect) HasAssertions() bool {
	return e.ExitCode != nil || e.ExitSignal != nil ||
		len(e.StdoutContainsAll) > 0 || len(e.StdoutContainsAny) > 0 ||
		len(e.StdoutRegexAll) > 0 || len(e.StdoutRegexAny) > 0 ||
		len(e.StderrContainsAll) > 0 || len(e.StderrContainsAny) > 0 ||
		len(e.StderrRegexAll) > 0 || len(e.StderrRegexAny) > 0
}

// Observed is what a run produced.
type Observed struct {
	ExitCode   *int
	ExitSignal *int
	TimedOut   bool
	Stdout     string
	Stderr     string
}

// Validate checks observed against expect and returns one failure string
// per violated rule, in a fixed order. Rules never short-circuit each other,
// so a run that times out still reports its exit and output mismatches.
// An empty result means the scenario passed.
func Validate(expect Expect, observed Observed) []string {
	var failures []string

	if observed.TimedOut {
		failures = append(failures, "timed out")
	}
	if expect.ExitCode != nil && !intEqual(expect.ExitCode, observed.ExitCode) {
		failures = append(failures, fmt.Sprintf("expected exit_code %d, observed %s", *expect.ExitCode, renderOptional(observed.ExitCode)))
	}
	if expect.ExitSignal != nil && !intEqual(expect.ExitSignal, observed.ExitSignal) {
		failures = append(failures, fmt.Sprintf("expected exit_signal %d, observed %s", *expect.ExitSignal, renderOptional(observed.ExitSignal)))
	}

	failures = append(failures, checkStream("stdout", observed.Stdout,
		expect.StdoutContainsAll, expect.StdoutContainsAny, expect.StdoutRegexAll, expect.StdoutRegexAny)...)
	failures = append(failures, checkStream("stderr", observed.Stderr,
		expect.StderrContainsAll, expect.StderrContainsAny, expect.StderrRegexAll, expect.StderrRegexAny)...)

	return failures
}

func checkStream(stream, text string, containsAll, containsAny, regexAll, regexAny []string) []string {
	var failures []string

	for _, needle := range containsAll {
		if !strings.Contains(text, needle) {
			failures = append(failures, fmt.Sprintf("%s missing %q", stream, needle))
		}
	}

	if len(containsAny) > 0 {
		hit := false
		for _, needle := range containsAny {
			if strings.Contains(text, needle) {
				hit = true
				break
			}
		}
		if !hit {
			failures = append(failures, fmt.Sprintf("%s contains none of %s", stream, quoteList(containsAny)))
		}
	}

	for _, pattern := range regexAll {
		re, err := regexp.Compile(pattern)
		if err != nil {
			failures = append(failures, fmt.Sprintf("invalid %s regex %q: %v", stream, pattern, err))
			continue
		}
		if !re.MatchString(text) {
			failures = append(failures, fmt.Sprintf("%s does not match regex %q", stream, pattern))
		}
	}

	if len(regexAny) > 0 {
		matched := false
		for _, pattern := range regexAny {
			re, err := regexp.Compile(pattern)
			if err != nil {
				failures = append(failures, fmt.Sprintf("invalid %s regex %q: %v", stream, pattern, err))
				continue
			}
			if !matched && re.MatchString(text) {
				matched = true
			}
		}
		if !matched {
			failures = append(failures, fmt.Sprintf("%s matches none of regexes %s", stream, quoteList(regexAny)))
		}
	}

	return failures
}

func intEqual(want, got *int) bool {
	return got != nil && *want == *got
}

func renderOptional(v *int) string {
	if v == nil {
		return "None"
	}
	return "Some(" + strconv.Itoa(*v) + ")"
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = strconv.Quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
