package answer

import (
	"strings"
	"unicode"

	"github.com/forPelevin/gomoji"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canned small-talk replies.
const (
	replyGreeting  = "👋 Hello! How can I help today?"
	replyMorning   = "🌅 Good morning! How can I help today?"
	replyAfternoon = "🌤️ Good afternoon! What can I do for you?"
	replyEvening   = "🌆 Good evening! How can I assist?"
	replyThanks    = "You’re welcome! Anything else I can help with? 🙌"
	replyGoodbye   = "Thanks for visiting Khisima! Have a great day. 👋"
	replyHowAreYou = "I’m doing great, thanks! How can I help with your project?"
	replyAck       = "Got it. What else would you like to know?"
	replyHumor     = "😄 Haha! Now, how can I help you today?"
)

// maxSmallTalkTokens bounds how long a message may be and still count as
// small talk.
const maxSmallTalkTokens = 5

var (
	greetPhrases = phrases(
		"hi", "hello", "hey", "morning", "good morning",
		"afternoon", "good afternoon", "evening", "good evening",
		"muraho", "bonjour", "salut", "habari", "mambo", "yo", "sup",
		"just greeting", "just greetings", "i was just sending my greetings",
	)
	thanksPhrases    = phrases("thanks", "thank you", "murakoze", "merci", "asante", "thx")
	byePhrases       = phrases("bye", "goodbye", "see you", "cheers", "ciao")
	howAreYouPhrases = phrases("how are you", "how's it going", "how are u", "how r u")
	ackPhrases       = phrases("ok", "okay", "alright", "cool", "great", "nice")
	humorPhrases     = phrases("lol", "haha", "hahaha", "lmao")

	askWords = map[string]struct{}{
		"where": {}, "what": {}, "which": {}, "who": {}, "how": {},
		"when": {}, "why": {}, "price": {}, "cost": {},
	}

	laughEmoji = map[string]struct{}{"😂": {}, "😅": {}, "😆": {}, "🤣": {}}
)

type faq struct {
	triggers []string
	reply    string
}

// faqs is checked in order; the first entry with a matching trigger wins.
var faqs = []faq{
	{
		triggers: substrings("what is khisima", "about khisima", "about your company"),
		reply:    "Khisima is a language services & data company focused on African languages—translation/localization, language data for NLP/LLM, AI language consulting, cultural adaptation, voice-over/dubbing, and multilingual SEO.",
	},
	{
		triggers: substrings("languages you support", "languages do you support", "what languages", "supported languages", "which languages", "language coverage"),
		reply:    "We support Kinyarwanda, Swahili, English, French, Amharic, Luganda, Chewa, Wolof, Oromo—and more African languages. Tell me your target pair and I’ll confirm coverage.",
	},
	{
		triggers: substrings("pricing", "how much", "rates", "cost"),
		reply:    "Pricing depends on scope, languages, and turnaround. Translation is usually per word; data services are per task/hour. Share your brief and we’ll prepare a tailored quote.",
	},
	{
		triggers: substrings("turnaround", "timeline", "delivery time", "deadline"),
		reply:    "Turnaround depends on volume and complexity. Standard documents may be 24–72 hours; larger/technical projects get a milestone plan.",
	},
	{
		triggers: substrings("nda", "confidential", "privacy", "security"),
		reply:    "We can sign an NDA and follow secure, least-privilege access. Isolated workflows are available on request.",
	},
	{
		triggers: substrings("voice over", "voice-over", "voiceover", "dubbing"),
		reply:    "We provide voice-over & dubbing: script adaptation, casting, studio recording, and QC for broadcast/online.",
	},
	{
		triggers: substrings("seo", "multilingual seo"),
		reply:    "We offer multilingual SEO: local keyword research, culturally adapted content, and on-page optimization.",
	},
	{
		triggers: substrings("career", "job", "hiring", "internship"),
		reply:    "We love meeting talented linguists, annotators, and engineers. Check the Careers page or send a short intro + CV.",
	},
	{
		triggers: substrings("quote", "estimate", "proposal", "rfp"),
		reply:    "Share source/target languages, volume or dataset size, domain (e.g., legal/medical), and your deadline—we’ll prepare a quote.",
	},
}

var (
	lower       = cases.Lower(language.Und)
	apostrophes = strings.NewReplacer("’", "'", "‘", "'", "`", "'")
)

// query is a normalized view of the visitor's text.
type query struct {
	raw    string
	norm   string // lower-cased, whitespace collapsed
	words  []string
	padded string // " w1 w2 ... " for whole-word phrase lookups
	fields int    // whitespace separated tokens, emoji included
}

func parse(raw string) query {
	fields := strings.Fields(normalize(raw))
	words := tokenize(strings.Join(fields, " "))
	return query{
		raw:    raw,
		norm:   strings.Join(fields, " "),
		words:  words,
		padded: " " + strings.Join(words, " ") + " ",
		fields: len(fields),
	}
}

func normalize(s string) string { return lower.String(apostrophes.Replace(s)) }

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

// phrases pre-tokenizes trigger phrases the same way queries are.
func phrases(ps ...string) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, strings.Join(tokenize(normalize(p)), " "))
	}
	return out
}

// substrings normalizes FAQ triggers for plain substring lookups, so
// "internship" also matches "internships".
func substrings(ps ...string) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, strings.Join(strings.Fields(normalize(p)), " "))
	}
	return out
}

func (q query) contains(ps []string) bool {
	for _, p := range ps {
		if p != "" && strings.Contains(q.norm, p) {
			return true
		}
	}
	return false
}

func (q query) has(ps []string) bool {
	for _, p := range ps {
		if p != "" && strings.Contains(q.padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func (q query) hasWord(w string) bool { return strings.Contains(q.padded, " "+w+" ") }

func (q query) asks() bool {
	if strings.Contains(q.raw, "?") {
		return true
	}
	for _, w := range q.words {
		if _, ok := askWords[w]; ok {
			return true
		}
	}
	return false
}

func (q query) laughs() bool {
	if q.has(humorPhrases) {
		return true
	}
	for _, e := range gomoji.CollectAll(q.raw) {
		if _, ok := laughEmoji[e.Character]; ok {
			return true
		}
	}
	return false
}

// Quick answers deterministic small talk and known FAQs. It never invents a
// generic reply: anything it is unsure about is NotFound.
func Quick(text string) Result {
	q := parse(text)
	if q.fields == 0 {
		return NotFound()
	}
	if reply, ok := smallTalk(q); ok {
		return Found(reply, SourceQuick)
	}
	for _, f := range faqs {
		if q.contains(f.triggers) {
			return Found(f.reply, SourceQuick)
		}
	}
	return NotFound()
}

// smallTalk classifies short ritual messages. Questions and long messages
// never qualify, except "how are you" which is itself the ritual.
func smallTalk(q query) (string, bool) {
	if q.fields > maxSmallTalkTokens {
		return "", false
	}
	if q.has(howAreYouPhrases) {
		return replyHowAreYou, true
	}
	if q.asks() {
		return "", false
	}
	switch {
	case q.has(greetPhrases):
		return greeting(q), true
	case q.has(thanksPhrases):
		return replyThanks, true
	case q.has(byePhrases):
		return replyGoodbye, true
	case q.has(ackPhrases):
		return replyAck, true
	case q.laughs():
		return replyHumor, true
	}
	return "", false
}

func greeting(q query) string {
	switch {
	case q.hasWord("morning"):
		return replyMorning
	case q.hasWord("afternoon"):
		return replyAfternoon
	case q.hasWord("evening"):
		return replyEvening
	default:
		return replyGreeting
	}
}
