package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUAClassifier_Classify(t *testing.T) {
	c := NewUAClassifier()

	t.Run("empty", func(t *testing.T) {
		client := c.Classify("")

		assert.False(t, client.BrowserFamily.Valid)
		assert.False(t, client.OSFamily.Valid)
		assert.False(t, client.DeviceFamily.Valid)
	})

	t.Run("unrecognized", func(t *testing.T) {
		client := c.Classify("definitely-not-a-browser")

		assert.False(t, client.BrowserFamily.Valid)
		assert.False(t, client.BrowserVersion.Valid)
		assert.False(t, client.OSFamily.Valid)
	})

	t.Run("desktop firefox", func(t *testing.T) {
		client := c.Classify("Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0")

		assert.Equal(t, "Firefox", client.BrowserFamily.String)
		assert.Equal(t, "120.0", client.BrowserVersion.String)
		assert.Equal(t, "Ubuntu", client.OSFamily.String)
		assert.False(t, client.DeviceFamily.Valid)
	})

	t.Run("desktop chrome", func(t *testing.T) {
		client := c.Classify("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

		assert.Equal(t, "Chrome", client.BrowserFamily.String)
		assert.Contains(t, client.BrowserVersion.String, "120.0")
		assert.Contains(t, client.OSFamily.String, "Windows")
	})

	t.Run("iphone", func(t *testing.T) {
		client := c.Classify("Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1")

		assert.Equal(t, "Mobile Safari", client.BrowserFamily.String)
		assert.Equal(t, "iOS", client.OSFamily.String)
		assert.Equal(t, "17.1", client.OSVersion.String)
		assert.Equal(t, "iPhone", client.DeviceFamily.String)
	})
}

func TestVersion(t *testing.T) {
	assert.False(t, version("", "", "").Valid)
	assert.Equal(t, "10", version("10", "", "").String)
	assert.Equal(t, "1.2.3", version("1", "2", "3").String)
	assert.Equal(t, "1", version("1", "", "3").String)
}
