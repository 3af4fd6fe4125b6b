package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleData() MessageData {
	return MessageData{
		GuestName:     "Anna Kowalska",
		ApartmentName: "12",
		FullPIN:       "005687",
		Arrival:       "2025-06-01",
		Departure:     "2025-06-05",
	}
}

func TestRender(t *testing.T) {
	t.Run("substitutes every placeholder", func(t *testing.T) {
		subject, body := Render("en", sampleData())

		assert.NotEmpty(t, subject)
		assert.Contains(t, body, "Anna Kowalska")
		assert.Contains(t, body, "005687")
		assert.Contains(t, body, "2025-06-01")
		assert.Contains(t, body, "2025-06-05")
		assert.NotContains(t, body, "{guest_name}")
		assert.NotContains(t, body, "{apartment_name}")
		assert.NotContains(t, body, "{full_pin}")
		assert.NotContains(t, body, "{arrival}")
		assert.NotContains(t, body, "{departure}")
	})

	t.Run("selects the guest's language", func(t *testing.T) {
		_, plBody := Render("pl", sampleData())
		_, enBody := Render("en", sampleData())

		assert.NotEqual(t, enBody, plBody)
		assert.Contains(t, plBody, "zameldowanie")
	})

	t.Run("unknown language falls back to english", func(t *testing.T) {
		subject, body := Render("fr", sampleData())
		enSubject, enBody := Render("en", sampleData())

		assert.Equal(t, enSubject, subject)
		assert.Equal(t, enBody, body)
	})

	t.Run("empty language falls back to english", func(t *testing.T) {
		subject, _ := Render("", sampleData())
		enSubject, _ := Render("en", sampleData())
		assert.Equal(t, enSubject, subject)
	})

	t.Run("all configured languages have complete templates", func(t *testing.T) {
		for lang := range templates {
			_, body := Render(lang, sampleData())
			assert.Contains(t, body, "005687", "language %s must include the PIN", lang)
			assert.Contains(t, body, "2025-06-01", "language %s must include the arrival", lang)
		}
	})
}

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+48 600 100 200", "+48600100200"},
		{"(48) 600-100-200", "48600100200"},
		{"+48600100200", "+48600100200"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanPhone(tt.in))
	}
}
