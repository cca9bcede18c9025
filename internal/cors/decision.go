package cors

import (
	"net/http"
	"strconv"
)

// Response header names written by the engine.
const (
	HeaderOrigin           = "Origin"
	HeaderVary             = "Vary"
	HeaderAllowOrigin      = "Access-Control-Allow-Origin"
	HeaderAllowMethods     = "Access-Control-Allow-Methods"
	HeaderAllowHeaders     = "Access-Control-Allow-Headers"
	HeaderAllowCredentials = "Access-Control-Allow-Credentials"
	HeaderExposeHeaders    = "Access-Control-Expose-Headers"
	HeaderMaxAge           = "Access-Control-Max-Age"
)

// RejectedPreflightBody is the body sent with a 403 preflight response.
const RejectedPreflightBody = "CORS: Origin not allowed"

// Outcome is the branch a request resolved to.
type Outcome int

const (
	// SimpleNoOrigin is a non-preflight request without an Origin header.
	SimpleNoOrigin Outcome = iota
	// SimpleAllowed is a non-preflight request from an allowed origin.
	SimpleAllowed
	// SimpleRejected is a non-preflight request from a disallowed origin.
	// It is not blocked; the browser enforces the missing headers.
	SimpleRejected
	// PreflightAllowed is an OPTIONS request answered with 204.
	PreflightAllowed
	// PreflightRejected is an OPTIONS request answered with 403.
	PreflightRejected
)

func (o Outcome) String() string {
	switch o {
	case SimpleAllowed:
		return "simple_allowed"
	case SimpleRejected:
		return "simple_rejected"
	case PreflightAllowed:
		return "preflight_allowed"
	case PreflightRejected:
		return "preflight_rejected"
	default:
		return "simple_no_origin"
	}
}

// Header is a single response header to set.
type Header struct {
	Name  string
	Value string
}

// Decision describes what to do with one request.
type Decision struct {
	Outcome      Outcome
	Headers      []Header
	ShortCircuit bool
	Status       int
	Body         string
}

// Preflight reports whether the request was an OPTIONS preflight.
func (d Decision) Preflight() bool {
	return d.Outcome == PreflightAllowed || d.Outcome == PreflightRejected
}

// Allowed reports whether the request was counted as allowed.
func (d Decision) Allowed() bool {
	return d.Outcome == SimpleAllowed || d.Outcome == PreflightAllowed
}

// Rejected reports whether the request was counted as rejected.
func (d Decision) Rejected() bool {
	return d.Outcome == SimpleRejected || d.Outcome == PreflightRejected
}

// Header returns the value decided for name, if any.
func (d Decision) Header(name string) (string, bool) {
	for _, h := range d.Headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// Evaluate decides how to answer a request. It has no side effects.
// hasOrigin distinguishes a missing Origin header from an empty one.
func Evaluate(cfg PolicyConfig, set *OriginSet, origin string, hasOrigin bool, method string) Decision {
	allowAll, member := set.Match(origin)
	originAllowed := allowAll || member

	if method == http.MethodOptions {
		if hasOrigin && !originAllowed {
			return Decision{
				Outcome:      PreflightRejected,
				ShortCircuit: true,
				Status:       http.StatusForbidden,
				Body:         RejectedPreflightBody,
			}
		}

		d := Decision{
			Outcome:      PreflightAllowed,
			ShortCircuit: true,
			Status:       http.StatusNoContent,
		}
		if allowAll {
			d.set(HeaderAllowOrigin, Wildcard)
		} else if hasOrigin {
			d.set(HeaderAllowOrigin, origin)
			d.set(HeaderVary, HeaderOrigin)
		}
		d.set(HeaderAllowMethods, cfg.AllowedMethods)
		d.set(HeaderAllowHeaders, cfg.AllowedHeaders)
		if cfg.AllowCredentials {
			d.set(HeaderAllowCredentials, "true")
		}
		d.set(HeaderMaxAge, strconv.Itoa(cfg.MaxAge))
		return d
	}

	var d Decision
	switch {
	case allowAll:
		d.Outcome = SimpleAllowed
		d.set(HeaderAllowOrigin, Wildcard)
	case hasOrigin && member:
		d.Outcome = SimpleAllowed
		d.set(HeaderAllowOrigin, origin)
		d.set(HeaderVary, HeaderOrigin)
	case hasOrigin:
		d.Outcome = SimpleRejected
		return d
	default:
		d.Outcome = SimpleNoOrigin
		return d
	}

	if cfg.AllowCredentials {
		d.set(HeaderAllowCredentials, "true")
	}
	if cfg.ExposedHeaders != "" {
		d.set(HeaderExposeHeaders, cfg.ExposedHeaders)
	}
	return d
}

func (d *Decision) set(name, value string) {
	d.Headers = append(d.Headers, Header{Name: name, Value: value})
}
