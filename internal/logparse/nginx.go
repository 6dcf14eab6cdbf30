package logparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tinytelemetry/logreport/internal/model"
)

// ErrPatternGroups is returned when a line pattern does not have exactly one capture group.
var ErrPatternGroups = errors.New("logparse: pattern must have exactly 1 capture group")

// Parser extracts the request URL and request time from nginx access log lines.
//
// The expected log format ends with $request_time:
//
//	$remote_addr $remote_user $http_x_real_ip [$time_local] "$request"
//	$status $body_bytes_sent "$http_referer" "$http_user_agent"
//	"$http_x_forwarded_for" "$http_X_REQUEST_ID" "$http_X_RB_USER" $request_time
type Parser struct {
	urlRe  *regexp.Regexp
	timeRe *regexp.Regexp
}

// NewParser compiles the URL and time patterns. Empty patterns fall back to defaults.
func NewParser(urlPattern, timePattern string) (*Parser, error) {
	if urlPattern == "" {
		urlPattern = model.DefaultURLPattern
	}
	if timePattern == "" {
		timePattern = model.DefaultTimePattern
	}
	urlRe, err := compileOneGroup(urlPattern)
	if err != nil {
		return nil, fmt.Errorf("url pattern: %w", err)
	}
	timeRe, err := compileOneGroup(timePattern)
	if err != nil {
		return nil, fmt.Errorf("time pattern: %w", err)
	}
	return &Parser{urlRe: urlRe, timeRe: timeRe}, nil
}

// DefaultParser returns a parser for the default nginx line grammar.
func DefaultParser() *Parser {
	return &Parser{
		urlRe:  regexp.MustCompile(model.DefaultURLPattern),
		timeRe: regexp.MustCompile(model.DefaultTimePattern),
	}
}

func compileOneGroup(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() != 1 {
		return nil, ErrPatternGroups
	}
	return re, nil
}

// ParseLine returns the (URL, request time) pair of line, or model.Unparseable.
// It never fails: malformed input is reported through the result.
func (p *Parser) ParseLine(line string) model.ParsedLine {
	line = strings.TrimSpace(line)
	if line == "" {
		return model.Unparseable
	}

	um := p.urlRe.FindStringSubmatch(line)
	if um == nil || um[1] == "" {
		return model.Unparseable
	}
	tm := p.timeRe.FindStringSubmatch(line)
	if tm == nil {
		return model.Unparseable
	}

	requestTime, err := strconv.ParseFloat(tm[1], 64)
	if err != nil || requestTime < 0 {
		return model.Unparseable
	}

	url := um[1]
	if !utf8.ValidString(url) {
		url = strings.ToValidUTF8(url, "�")
	}
	return model.ParsedLine{URL: url, RequestTime: requestTime, Valid: true}
}

// Parse converts a raw source line; oversized lines are always unparseable.
func (p *Parser) Parse(raw model.RawLine) model.ParsedLine {
	if raw.Oversized {
		return model.Unparseable
	}
	return p.ParseLine(raw.Text)
}
