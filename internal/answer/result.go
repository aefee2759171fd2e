// Package answer resolves free-text visitor questions without a human:
// canned small-talk and FAQ replies first, then a keyword lookup backed by
// cached pages of the public site. When neither stage is confident the
// result is NotFound and the caller escalates to live chat or the inbox.
package answer

// Source tags where an answer came from.
type Source string

const (
	SourceQuick Source = "quick"
	// SourceWiki is reserved for an encyclopedia stage; nothing emits it yet.
	SourceWiki Source = "wiki"
	SourceSite Source = "khisima"
)

// Result is either Found(answer, source) or NotFound.
type Result struct {
	Answer string
	Source Source
	found  bool
}

// Found returns a positive result.
func Found(answer string, src Source) Result {
	return Result{Answer: answer, Source: src, found: true}
}

// NotFound returns the empty result.
func NotFound() Result { return Result{} }

// OK reports whether the result carries an answer.
func (r Result) OK() bool { return r.found }
