package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", ""},
		{"lowercased", "ПРИВЕТ", "привет"},
		{"leetspeak digits", "0к", "ок"},
		{"separators stripped", "д.е-р_ь м о", "дерьмо"},
		{"triple run squeezed", "ноооо", "но"},
		{"double run kept", "ооба", "ооба"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.text))
		})
	}
}

func TestContainsProfanity(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		dirty bool
	}{
		{"empty", "", false},
		{"clean russian", "Отличное помещение, всем рекомендую", false},
		{"clean english", "Great space, would book again", false},
		{"plain russian profanity", "полное дерьмо", true},
		{"inflected root", "дерьмовое место", true},
		{"obfuscated with dots", "д.е.р.ь.м.о", true},
		{"stretched runes", "дерььььмо", true},
		{"english profanity", "this place is bullshit", true},
		{"english uppercase", "BULLSHIT", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dirty, found := ContainsProfanity(tt.text)
			assert.Equal(t, tt.dirty, dirty)
			if tt.dirty {
				assert.NotEmpty(t, found)
			} else {
				assert.Empty(t, found)
			}
		})
	}
}

func TestCensorText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", ""},
		{"clean text untouched", "Отличное помещение", "Отличное помещение"},
		{"profane word masked", "полное дерьмо", "полное ******"},
		{"english word masked", "what a crap review", "what a **** review"},
		{"punctuation kept", "дерьмо!", "******!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CensorText(tt.text))
		})
	}
}

func TestValidateComment(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		wantErr bool
	}{
		{"too short", "коротко", true},
		{"long enough", "Очень хорошее помещение", false},
		{"profanity rejected", "Это место полное дерьмо", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateComment(tt.comment)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
