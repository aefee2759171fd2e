package answer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuick_SmallTalk(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello", replyGreeting},
		{"  hey  ", replyGreeting},
		{"Good morning!", replyMorning},
		{"good afternoon team", replyAfternoon},
		{"Muraho, good evening", replyEvening},
		{"thank you", replyThanks},
		{"Murakoze cyane", replyThanks},
		{"ok bye", replyGoodbye},
		{"see you", replyGoodbye},
		{"How are you?", replyHowAreYou},
		{"how’s it going", replyHowAreYou},
		{"cool", replyAck},
		{"lol", replyHumor},
		{"😂😂", replyHumor},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			res := Quick(tc.in)
			assert.True(t, res.OK(), "expected an answer for %q", tc.in)
			assert.Equal(t, tc.want, res.Answer)
			assert.Equal(t, SourceQuick, res.Source)
		})
	}
}

func TestQuick_StrictSmallTalkFilter(t *testing.T) {
	// Greeting words inside questions or long messages are not small talk.
	for _, in := range []string{
		"hi, where is your office?",
		"hello can you help me translate my documents into kinyarwanda",
		"hey?",
		"hi who are you",
	} {
		res := Quick(in)
		if res.OK() {
			assert.NotEqual(t, replyGreeting, res.Answer, "input %q", in)
		}
	}
	// Word boundaries: "you" is not "yo", "think" is not "hi".
	assert.False(t, Quick("you think").OK())
}

func TestQuick_FAQ(t *testing.T) {
	cases := []struct {
		in     string
		prefix string
	}{
		{"What languages do you support?", "We support Kinyarwanda"},
		{"Which languages are available?", "We support Kinyarwanda"},
		{"What is Khisima?", "Khisima is a language services"},
		{"How much does translation cost?", "Pricing depends on scope"},
		{"what is your turnaround for 10 pages", "Turnaround depends"},
		{"Can you sign an NDA?", "We can sign an NDA"},
		{"do you do voice-over work", "We provide voice-over"},
		{"multilingual SEO please", "We offer multilingual SEO"},
		{"are you hiring interns", "We love meeting talented"},
		{"I need a quote for a dataset", "Share source/target languages"},
		// Triggers are substrings, so plurals and inflections still match.
		{"Do you offer internships?", "We love meeting talented"},
		{"Can you sign NDAs?", "We can sign an NDA"},
		{"What are your prices for proposals?", "Share source/target languages"},
		{"I need quotes for 3 documents", "Share source/target languages"},
		{"Voice-Over   for a  documentary", "We provide voice-over"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			res := Quick(tc.in)
			assert.True(t, res.OK())
			assert.True(t, strings.HasPrefix(res.Answer, tc.prefix), "got %q", res.Answer)
		})
	}
}

func TestQuick_NoFallback(t *testing.T) {
	for _, in := range []string{"", "   ", "asdkjasd", "urgent help needed", "see you later about the contract"} {
		assert.False(t, Quick(in).OK(), "input %q", in)
	}
}
