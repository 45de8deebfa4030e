package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVariants(t *testing.T) {
	want := Normalize("wat phra that-lampang เก่า")
	cases := []string{
		"Wat Phra That\u2013Lampang (เก่า)",
		"Wat Phra That\u2014Lampang [เก่า]",
		"\ufeffWat  Phra\u200b That\uff0dLampang \uff08เก่า\uff09",
		"\u201cWat Phra That-Lampang\u201d {เก่า}",
		"  wat phra that\u2212lampang   เก่า  ",
	}
	for _, c := range cases {
		assert.Equal(t, want, Normalize(c), "input %q", c)
	}
	assert.Equal(t, "wat phra that-lampang เก่า", want)
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, s := range []string{
		"Doi Suthep (Temple)",
		"\u2018Nimman\u2019 \u2013 Road",
		"ตลาดวโรรส",
		"",
		"   ",
	} {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("\u200b\ufeff  ()"))
}

func TestEqualFold(t *testing.T) {
	assert.True(t, EqualFold(" Hotel X ", "hotel x"))
	assert.False(t, EqualFold("Hotel X", "Hotel Y"))
}
