package resource

import (
	"fmt"
	"regexp"
	"strings"
)

type atbKey struct {
	tech   string
	detail string
}

type atbEntry struct {
	key  atbKey
	tags []Tag
}

// atbTechnologies maps NREL ATB technology and detail to group selectors.
// An empty detail matches any detail.
var atbTechnologies = func() []atbEntry {
	out := []atbEntry{
		{atbKey{"utilitypv", ""}, []Tag{T(TagTechnology, "utilitypv")}},
		{atbKey{"landbasedwind", ""}, []Tag{T(TagTechnology, "landbasedwind")}},
		{atbKey{"offshorewind", ""}, []Tag{T(TagTechnology, "offshorewind")}},
	}
	for x := 1; x <= 15; x++ {
		turbine := "fixed"
		if x >= 6 {
			turbine = "floating"
		}
		out = append(out, atbEntry{
			atbKey{"offshorewind", fmt.Sprintf("otrg%d", x)},
			[]Tag{T(TagTechnology, "offshorewind"), T("turbine_type", turbine)},
		})
	}
	return out
}()

var whitespace = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(s), "")
}

// MapNRELATBTechnology returns the selectors identifying the resource groups of
// an NREL ATB technology and optional detail. Unknown technologies map to no
// selectors.
func MapNRELATBTechnology(tech, detail string) []Tag {
	tech, detail = normalize(tech), normalize(detail)
	var out []Tag
	for _, e := range atbTechnologies {
		if (e.key.tech == "" || e.key.tech == tech) && (e.key.detail == "" || e.key.detail == detail) {
			out = MergeTags(out, e.tags)
		}
	}
	return out
}

// MergeTags updates the keys of dst found in src and appends the rest of src.
func MergeTags(dst, src []Tag) []Tag {
	for _, t := range src {
		found := false
		for i := range dst {
			if dst[i].Key == t.Key {
				dst[i].Value = t.Value
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, t)
		}
	}
	return dst
}
