package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Code
	}{
		{name: "english sentence", text: "Make a poster of the moon with a fox", want: EN},
		{name: "spanish sentence", text: "Quiero crear un libro con la portada azul", want: ES},
		{name: "empty resolves to spanish", text: "", want: ES},
		{name: "no markers resolves to spanish", text: "zzz qqq", want: ES},
		{name: "case insensitive", text: "HELLO, CREATE A BOOK COVER", want: EN},
		{name: "repeated marker counts once", text: "book book book hola crear", want: ES},
		{name: "tie resolves to spanish", text: "hello hola", want: ES},
		{name: "leading article is not a marker", text: "The moon poster", want: ES},
		{name: "leading article alone", text: "the fox", want: ES},
		{name: "edge markers do not count", text: "poster with", want: ES},
		{name: "inner article is a marker", text: "a poster of the moon", want: EN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text))
		})
	}
}

func TestParse(t *testing.T) {
	assert.Equal(t, EN, Parse("en"))
	assert.Equal(t, EN, Parse(" EN-us"))
	assert.Equal(t, ES, Parse("es"))
	assert.Equal(t, ES, Parse(""))
}
