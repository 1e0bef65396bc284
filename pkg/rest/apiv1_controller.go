package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mailclean/mailclean/pkg/extension/event"
	"github.com/mailclean/mailclean/pkg/message"
	"github.com/mailclean/mailclean/pkg/rest/model"
	"github.com/mailclean/mailclean/pkg/sanitize"
	"github.com/mailclean/mailclean/pkg/server/web"
	"github.com/mailclean/mailclean/pkg/storage"
	"github.com/mailclean/mailclean/pkg/stringutil"
	"github.com/rs/zerolog/log"
)

// SanitizeV1 sanitizes the HTML document in the JSON request body and stores the result.
func SanitizeV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	var body model.JSONSanitizeRequestV1
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON request body: "+err.Error(), http.StatusBadRequest)
		return nil
	}
	opts, err := mergeOptions(ctx.Manager.DefaultOptions(), body.Options)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	r, err := ctx.Manager.Sanitize(&message.Request{
		Origin:  event.OriginHTML,
		Subject: body.Subject,
		HTML:    body.HTML,
		Options: opts,
	})
	if err != nil {
		return fmt.Errorf("sanitize failed: %w", err)
	}

	return web.RenderJSON(w, resultToJSON(r))
}

// MessageV1 sanitizes the raw RFC 5322 message in the request body and stores the result.  Query
// parameters override the default options.
func MessageV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	overrides, err := queryOptions(req.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	opts, err := mergeOptions(ctx.Manager.DefaultOptions(), overrides)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	r, err := ctx.Manager.SanitizeMessage(req.Body, opts)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Message too large", http.StatusRequestEntityTooLarge)
			return nil
		}
		return fmt.Errorf("sanitize message failed: %w", err)
	}

	return web.RenderJSON(w, resultToJSON(r))
}

// ResultListV1 renders the headers of all stored results.
func ResultListV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	results, err := ctx.Manager.GetResults()
	if err != nil {
		return fmt.Errorf("failed to get results: %w", err)
	}
	log.Debug().Str("module", "rest").Int("count", len(results)).Msg("Listing results")

	headers := make([]*model.JSONResultHeaderV1, len(results))
	for i, r := range results {
		headers[i] = resultToHeader(r)
	}
	return web.RenderJSON(w, headers)
}

// ResultShowV1 renders a particular stored result.
func ResultShowV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	// Don't have to validate these aren't empty, Gorilla returns 404.
	id := ctx.Vars["id"]
	r, err := ctx.Manager.GetResult(id)
	if errors.Is(err, storage.ErrNotExist) {
		http.NotFound(w, req)
		return nil
	}
	if err != nil {
		return fmt.Errorf("GetResult(%q) failed: %w", id, err)
	}

	return web.RenderJSON(w, resultToJSON(r))
}

// ResultHTMLV1 renders the sanitized document of a stored result as text/html.
func ResultHTMLV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	id := ctx.Vars["id"]
	r, err := ctx.Manager.GetResult(id)
	if errors.Is(err, storage.ErrNotExist) {
		http.NotFound(w, req)
		return nil
	}
	if err != nil {
		return fmt.Errorf("GetResult(%q) failed: %w", id, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "sandbox")
	_, err = io.WriteString(w, r.HTML)
	return err
}

// ResultDeleteV1 removes a particular stored result.
func ResultDeleteV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	id := ctx.Vars["id"]
	err = ctx.Manager.RemoveResult(id)
	if errors.Is(err, storage.ErrNotExist) {
		http.NotFound(w, req)
		return nil
	}
	if err != nil {
		return fmt.Errorf("RemoveResult(%q) failed: %w", id, err)
	}

	return web.RenderJSON(w, "OK")
}

// PolicyV1 renders the allow-list tables of the active policy.
func PolicyV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	p := ctx.Manager.Policy()
	jp := &model.JSONPolicyV1{
		Tags:            make(map[string][]string),
		StyleProperties: make(map[string][]string),
	}
	for _, tag := range p.Tags() {
		attrs, _ := p.LookupTag(tag)
		if attrs == nil {
			jp.Tags[tag] = nil
			continue
		}
		specs := make([]string, 0, len(attrs))
		for name, values := range attrs {
			specs = append(specs, name+formatValueSet(values))
		}
		sort.Strings(specs)
		jp.Tags[tag] = specs
	}
	for _, prop := range p.StyleProperties() {
		values, _ := p.LookupStyleProperty(prop)
		jp.StyleProperties[prop] = valueList(values)
	}

	return web.RenderJSON(w, jp)
}

// formatValueSet renders attribute value restrictions in policy file notation.
func formatValueSet(v *sanitize.ValueSet) string {
	if v == nil {
		return ""
	}
	if v.Numeric {
		return "[#]"
	}
	return "[" + strings.Join(valueList(v), "|") + "]"
}

func valueList(v *sanitize.ValueSet) []string {
	if v == nil {
		return nil
	}
	if v.Numeric {
		return []string{"#"}
	}
	values := make([]string, 0, len(v.Values))
	for value := range v.Values {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}

// mergeOptions applies the non-nil overrides to the defaults.
func mergeOptions(
	defaults sanitize.Options,
	overrides *model.JSONSanitizeOptionsV1,
) (sanitize.Options, error) {
	o := defaults
	if overrides == nil {
		return o, nil
	}
	if v := overrides.MaxContentSize; v != nil {
		if *v < 0 {
			return o, fmt.Errorf("max-content-size must not be negative, got %d", *v)
		}
		o.MaxContentSize = *v
	}
	if v := overrides.CSSClassPrefix; v != nil {
		if !validClassPrefix(*v) {
			return o, fmt.Errorf("css-class-prefix %q may only contain letters, digits, - and _", *v)
		}
		o.CSSClassPrefix = *v
	}
	setBool(&o.SuppressLinks, overrides.SuppressLinks)
	setBool(&o.DropExternalImages, overrides.DropExternalImages)
	setBool(&o.ReplaceURLs, overrides.ReplaceURLs)
	setBool(&o.ReplaceBodyWithContainer, overrides.ReplaceBodyWithContainer)
	setBool(&o.CSSOnly, overrides.CSSOnly)
	return o, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func validClassPrefix(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// queryOptions reads option overrides from URL query parameters named like the JSON fields.
func queryOptions(q url.Values) (*model.JSONSanitizeOptionsV1, error) {
	o := &model.JSONSanitizeOptionsV1{}
	if q.Has("max-content-size") {
		n, err := strconv.Atoi(q.Get("max-content-size"))
		if err != nil {
			return nil, fmt.Errorf("invalid max-content-size: %w", err)
		}
		o.MaxContentSize = &n
	}
	if q.Has("css-class-prefix") {
		s := q.Get("css-class-prefix")
		o.CSSClassPrefix = &s
	}
	bools := []struct {
		name string
		dst  **bool
	}{
		{"suppress-links", &o.SuppressLinks},
		{"drop-external-images", &o.DropExternalImages},
		{"replace-urls", &o.ReplaceURLs},
		{"replace-body-with-container", &o.ReplaceBodyWithContainer},
		{"css-only", &o.CSSOnly},
	}
	for _, b := range bools {
		if !q.Has(b.name) {
			continue
		}
		v, err := strconv.ParseBool(q.Get(b.name))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", b.name, err)
		}
		*b.dst = &v
	}
	return o, nil
}

func resultToHeader(r *storage.Result) *model.JSONResultHeaderV1 {
	return &model.JSONResultHeaderV1{
		ID:               r.ID,
		Origin:           r.Origin,
		Subject:          r.Subject,
		From:             stringutil.StringAddress(r.From),
		Date:             r.Date,
		InputSize:        r.InputSize,
		Size:             r.Size(),
		ImageURLRedacted: r.ImageURLRedacted,
		SizeExceeded:     r.SizeExceeded,
	}
}

func metadataToHeader(m *event.ResultMetadata) *model.JSONResultHeaderV1 {
	return &model.JSONResultHeaderV1{
		ID:               m.ID,
		Origin:           m.Origin,
		Subject:          m.Subject,
		From:             stringutil.StringAddress(m.From),
		Date:             m.Date,
		InputSize:        m.InputSize,
		Size:             m.OutputSize,
		ImageURLRedacted: m.ImageURLRedacted,
		SizeExceeded:     m.SizeExceeded,
	}
}

func resultToJSON(r *storage.Result) *model.JSONResultV1 {
	o := r.Options
	return &model.JSONResultV1{
		ID:               r.ID,
		Origin:           r.Origin,
		Subject:          r.Subject,
		From:             stringutil.StringAddress(r.From),
		Date:             r.Date,
		InputSize:        r.InputSize,
		Size:             r.Size(),
		ImageURLRedacted: r.ImageURLRedacted,
		SizeExceeded:     r.SizeExceeded,
		Options: &model.JSONEffectiveOptionsV1{
			MaxContentSize:           o.MaxContentSize,
			SuppressLinks:            o.SuppressLinks,
			DropExternalImages:       o.DropExternalImages,
			ReplaceURLs:              o.ReplaceURLs,
			CSSClassPrefix:           o.CSSClassPrefix,
			ReplaceBodyWithContainer: o.ReplaceBodyWithContainer,
			CSSOnly:                  o.CSSOnly,
		},
		HTML:     r.HTML,
		Text:     r.Text,
		HTMLLink: web.Reverse("ResultHTMLV1", r.ID),
	}
}
