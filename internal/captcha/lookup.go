package captcha

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/telemetry"

	"github.com/titanous/json5"
)

const report_lookup_resolve = "lookup.resolve"

//go:embed mapping.json5
var mappingFile []byte

// the site only ever serves a fixed pool of captcha images
var imageIndexRegex = regexp.MustCompile(`images/check/(\d+)\.jpg`)

func imageIndex(src string) (int, bool) {
	groups := imageIndexRegex.FindStringSubmatch(src)
	if len(groups) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// siteHost reports the host of src without a leading www, empty for a
// relative src.
func siteHost(src string) (string, bool) {
	u, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), true
}

// Lookup resolves captchas from a table of known images. Images are
// matched on their exact url first, then on the image index so that
// relative urls and other spellings of the site's host still resolve.
type Lookup struct {
	byUrl   map[string]string
	byIndex map[int]string
	// hosts the table's images are served from
	hosts map[string]bool
	tel   telemetry.API
}

// NewLookup validates that every answer is exactly five digits.
func NewLookup(table map[string]string, tel telemetry.API) (Lookup, error) {
	assert.NotNil(tel)

	l := Lookup{
		byUrl:   make(map[string]string, len(table)),
		byIndex: make(map[int]string, len(table)),
		hosts:   map[string]bool{},
		tel:     telemetry.NewScopedAPI("captcha", tel),
	}
	for src, digits := range table {
		if len(digits) != 5 || keepDigits(digits) != digits {
			return Lookup{}, fmt.Errorf("captcha answer for %s is not five digits: %q", src, digits)
		}
		l.byUrl[src] = digits
		idx, ok := imageIndex(src)
		if ok {
			l.byIndex[idx] = digits
		}
		if host, ok := siteHost(src); ok && host != "" {
			l.hosts[host] = true
		}
	}
	return l, nil
}

// LoadTable returns the bundled answers keyed by absolute image url.
func LoadTable(baseUrl string) (map[string]string, error) {
	var byIndex map[string]string
	err := json5.Unmarshal(mappingFile, &byIndex)
	if err != nil {
		return nil, fmt.Errorf("parse captcha mapping: %w", err)
	}
	base := strings.TrimSuffix(baseUrl, "/")
	table := make(map[string]string, len(byIndex))
	for idx, digits := range byIndex {
		table[fmt.Sprintf("%s/images/check/%s.jpg", base, idx)] = digits
	}
	return table, nil
}

// DefaultLookup is a Lookup over the bundled answers.
func DefaultLookup(baseUrl string, tel telemetry.API) (Lookup, error) {
	table, err := LoadTable(baseUrl)
	if err != nil {
		return Lookup{}, err
	}
	return NewLookup(table, tel)
}

func (l Lookup) Len() int {
	return len(l.byUrl)
}

func (l Lookup) Resolve(_ context.Context, img Image) (string, bool) {
	if digits, ok := l.byUrl[img.Src]; ok {
		return digits, true
	}
	idx, ok := imageIndex(img.Src)
	if ok && l.knownHost(img.Src) {
		if digits, ok := l.byIndex[idx]; ok {
			l.tel.ReportDebug("matched captcha by index", img.Src, idx)
			return digits, true
		}
	}
	l.tel.ReportWarning(report_lookup_resolve, fmt.Errorf("unknown captcha image"), img.Src)
	return "", false
}

func (l Lookup) knownHost(src string) bool {
	host, ok := siteHost(src)
	if !ok {
		return false
	}
	return host == "" || l.hosts[host]
}
