// Package models defines the span, annotation and window types shared by the graphy pipeline.
package models

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// Annotation position markers as recorded by Zipkin v1 instrumentation.
const (
	ClientSend    = "cs"
	ClientReceive = "cr"
	ServerSend    = "ss"
	ServerReceive = "sr"
)

// timestampDigits is the width of an epoch-microseconds timestamp.
const timestampDigits = 16

var (
	// ErrInvalidJSON is the cause of a MalformedSpanError for records that do not parse.
	ErrInvalidJSON = errors.New("record is not valid json")

	// ErrNotObject is the cause of a MalformedSpanError for valid json that is not an object.
	ErrNotObject = errors.New("record is not a json object")
)

// MalformedSpanError is returned when a raw record cannot be read as a span at all.
type MalformedSpanError struct {
	Index int
	Err   error
}

func (e *MalformedSpanError) Error() string {
	return fmt.Sprintf("malformed span record %d: %v", e.Index, e.Err)
}

func (e *MalformedSpanError) Unwrap() error {
	return e.Err
}

// Endpoint identifies the service that recorded an annotation.
// ServiceName is empty when the record did not carry one.
type Endpoint struct {
	ServiceName string `json:"serviceName,omitempty"`
	IPv4        string `json:"ipv4,omitempty"`
}

// Annotation is a timestamped position marker on a span.
type Annotation struct {
	Value     string
	timestamp int64
	hasTime   bool
	endpoints []Endpoint
	hasEnds   bool
}

// Timestamp returns the annotation timestamp, if recorded.
func (a Annotation) Timestamp() (int64, bool) {
	return a.timestamp, a.hasTime
}

// Endpoints returns the endpoints attached to the annotation.
//
// Unlike the other accessors, a missing endpoint is reported with ok == false instead of an
// empty slice: the annotation graph builder treats it as a fault that closes the current arc.
func (a Annotation) Endpoints() (endpoints []Endpoint, ok bool) {
	return a.endpoints, a.hasEnds
}

// BinaryAnnotation holds the key/value tags of a v1 binary annotation.
type BinaryAnnotation struct {
	Key      string
	Value    string
	Endpoint *Endpoint
}

// Span is one parsed span record. Fields that were absent in the record are left at their zero
// value; use the accessor methods to tell absent apart from zero.
type Span struct {
	TraceID  string
	ID       string
	ParentID string
	Name     string

	duration    int64
	hasDuration bool

	rawTimestamp int64
	hasTimestamp bool
	fixed        bool

	localEndpoint     *Endpoint
	tags              map[string]string
	annotations       []Annotation
	binaryAnnotations []BinaryAnnotation
}

// ParseSpan reads a raw json record. Only records that are not valid json objects fail;
// everything else degrades to absent fields.
func ParseSpan(raw []byte) (*Span, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &MalformedSpanError{Err: ErrInvalidJSON}
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, &MalformedSpanError{Err: ErrNotObject}
	}

	s := &Span{
		TraceID:  present(doc.Get("traceId")).String(),
		ID:       present(doc.Get("id")).String(),
		ParentID: present(doc.Get("parentId")).String(),
		Name:     present(doc.Get("name")).String(),
	}
	s.rawTimestamp, s.hasTimestamp = integer(doc.Get("timestamp"))
	s.duration, s.hasDuration = integer(doc.Get("duration"))
	s.localEndpoint = endpoint(doc.Get("localEndpoint"))

	if tags := present(doc.Get("tags")); tags.IsObject() {
		s.tags = make(map[string]string)
		tags.ForEach(func(key, value gjson.Result) bool {
			s.tags[key.String()] = value.String()
			return true
		})
	}

	if anns := doc.Get("annotations"); anns.IsArray() {
		anns.ForEach(func(_, value gjson.Result) bool {
			s.annotations = append(s.annotations, parseAnnotation(value))
			return true
		})
	}

	if bas := doc.Get("binaryAnnotations"); bas.IsArray() {
		bas.ForEach(func(_, value gjson.Result) bool {
			s.binaryAnnotations = append(s.binaryAnnotations, parseBinaryAnnotations(value)...)
			return true
		})
	}

	return s, nil
}

// IsRoot reports whether the span has no parent.
func (s *Span) IsRoot() bool {
	return s.ParentID == ""
}

// Timestamp returns the span start in epoch microseconds, widened to 16 digits. The normalized
// value replaces the raw one on first access.
func (s *Span) Timestamp() (int64, bool) {
	if !s.hasTimestamp {
		return 0, false
	}
	if !s.fixed {
		s.rawTimestamp = NormalizeTimestamp(s.rawTimestamp)
		s.fixed = true
	}
	return s.rawTimestamp, true
}

// Duration returns the span duration in microseconds, if recorded.
func (s *Span) Duration() (int64, bool) {
	return s.duration, s.hasDuration
}

// LocalEndpoint returns the v2 local endpoint, or nil.
func (s *Span) LocalEndpoint() *Endpoint {
	return s.localEndpoint
}

// Annotations returns the span annotations in record order; empty when the key is absent.
func (s *Span) Annotations() []Annotation {
	if s.annotations == nil {
		return []Annotation{}
	}
	return s.annotations
}

// BinaryAnnotations returns the span binary annotations; empty when the key is absent.
func (s *Span) BinaryAnnotations() []BinaryAnnotation {
	if s.binaryAnnotations == nil {
		return []BinaryAnnotation{}
	}
	return s.binaryAnnotations
}

// Tag returns a tag value, looking at v2 tags first and then at v1 binary annotations.
func (s *Span) Tag(key string) (string, bool) {
	if v, ok := s.tags[key]; ok {
		return v, true
	}
	for _, ba := range s.binaryAnnotations {
		if ba.Key == key {
			return ba.Value, true
		}
	}
	return "", false
}

// StatusCode returns the http.status_code tag, if any.
func (s *Span) StatusCode() (string, bool) {
	return s.Tag("http.status_code")
}

// ServiceName returns the first service name found on the span: the v2 local endpoint, then
// annotation endpoints.
func (s *Span) ServiceName() string {
	if s.localEndpoint != nil && s.localEndpoint.ServiceName != "" {
		return s.localEndpoint.ServiceName
	}
	for _, a := range s.annotations {
		for _, ep := range a.endpoints {
			if ep.ServiceName != "" {
				return ep.ServiceName
			}
		}
	}
	return ""
}

// NormalizeTimestamp right-pads a positive timestamp with zeros until it has 16 digits.
// Values that are already 16 digits or wider, zero, and negative values are returned as is.
func NormalizeTimestamp(ts int64) int64 {
	if ts <= 0 {
		return ts
	}
	for digits := len(strconv.FormatInt(ts, 10)); digits < timestampDigits; digits++ {
		ts *= 10
	}
	return ts
}

func parseAnnotation(value gjson.Result) Annotation {
	a := Annotation{Value: present(value.Get("value")).String()}
	a.timestamp, a.hasTime = integer(value.Get("timestamp"))

	ep := present(value.Get("endpoint"))
	if !ep.Exists() {
		return a
	}
	a.hasEnds = true
	if ep.IsArray() {
		ep.ForEach(func(_, v gjson.Result) bool {
			if e := endpoint(v); e != nil {
				a.endpoints = append(a.endpoints, *e)
			}
			return true
		})
		return a
	}
	if e := endpoint(ep); e != nil {
		a.endpoints = append(a.endpoints, *e)
	}
	return a
}

// parseBinaryAnnotations accepts both the {"key": k, "value": v} form and flat objects
// such as {"http.status_code": "200", "protocol": "HTTP"}.
func parseBinaryAnnotations(value gjson.Result) []BinaryAnnotation {
	if !value.IsObject() {
		return nil
	}
	if key := value.Get("key"); key.Exists() {
		return []BinaryAnnotation{{
			Key:      key.String(),
			Value:    value.Get("value").String(),
			Endpoint: endpoint(value.Get("endpoint")),
		}}
	}
	var out []BinaryAnnotation
	value.ForEach(func(k, v gjson.Result) bool {
		if v.IsObject() || v.IsArray() {
			return true
		}
		out = append(out, BinaryAnnotation{Key: k.String(), Value: v.String()})
		return true
	})
	return out
}

func endpoint(value gjson.Result) *Endpoint {
	value = present(value)
	if !value.IsObject() {
		return nil
	}
	return &Endpoint{
		ServiceName: present(value.Get("serviceName")).String(),
		IPv4:        present(value.Get("ipv4")).String(),
	}
}

// present maps json null to a non-existent result.
func present(r gjson.Result) gjson.Result {
	if r.Type == gjson.Null {
		return gjson.Result{}
	}
	return r
}

func integer(r gjson.Result) (int64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Int(), true
	case gjson.String:
		v, err := strconv.ParseInt(r.Str, 10, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}
