package duplicates

import (
	"regexp"
	"strings"
)

// Common words filtered out of search keyword extraction.
var stopWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`a an the is are was were be been being
		have has had do does did will would could should may might must shall
		can need dare ought used to of in for on with at by from as into
		through during before after above below between under again further
		then once here there when where why how all each few more most other
		some such no nor not only own same so than too very just also now and
		but or if because until while although though i me my myself we our
		ours ourselves you your yours yourself yourselves he him his himself
		she her hers herself it its itself they them their theirs themselves
		what which who whom this that these those am isn aren wasn weren hasn
		haven hadn doesn don didn won wouldn couldn shouldn mustn let s t ve
		ll d re m`) {
		stopWords[w] = true
	}
}

var wordPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// ExtractKeywords pulls meaningful lowercase keywords from text, filtering
// stop words and single characters, preserving first-seen order.
func ExtractKeywords(text string, maxKeywords int) []string {
	words := wordPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	var keywords []string
	for _, w := range words {
		w = strings.ToLower(w)
		if len(w) < 2 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) >= maxKeywords {
			break
		}
	}
	return keywords
}
