package luahost

import (
	"net/mail"
	"testing"
	"time"

	"github.com/mailclean/mailclean/pkg/extension/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultGetters(t *testing.T) {
	r := &event.ResultMetadata{
		ID:           "12",
		Origin:       event.OriginHTML,
		Subject:      "subj",
		From:         &mail.Address{Address: "from@example.com"},
		Date:         time.Date(2001, time.February, 3, 4, 5, 6, 0, time.UTC),
		InputSize:    100,
		OutputSize:   80,
		SizeExceeded: true,
	}
	script := `
		assert(result.id == "12", "id")
		assert(result.origin == "html", "origin")
		assert(result.subject == "subj", "subject")
		assert(tostring(result.from) == "<from@example.com>", "from")
		assert(result.date == 981173106, "date")
		assert(result.input_size == 100, "input_size")
		assert(result.output_size == 80, "output_size")
		assert(result.image_url_redacted == false, "image_url_redacted")
		assert(result.size_exceeded == true, "size_exceeded")
	`

	ls := newBindingState()
	ls.SetGlobal("result", wrapResult(ls, r))
	require.NoError(t, ls.DoString(script))
}

func TestResultReadOnly(t *testing.T) {
	ls := newBindingState()
	ls.SetGlobal("result", wrapResult(ls, &event.ResultMetadata{}))
	assert.Error(t, ls.DoString(`result.id = "x"`))
}
