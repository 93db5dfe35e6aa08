package profile

import (
	"fmt"
	"unicode"
)

var postProcessors = map[string]PostProcessor{
	"greek_final_sigma": greekFinalSigma,
}

// RegisterPostProcessor binds a name usable from profile data.
// Not safe to call concurrently with Load.
func RegisterPostProcessor(name string, fn PostProcessor) {
	postProcessors[name] = fn
}

func lookupPostProcessor(name string) (PostProcessor, error) {
	if name == "" {
		return nil, nil
	}
	fn, ok := postProcessors[name]
	if !ok {
		return nil, fmt.Errorf("profile: unknown post_process %q", name)
	}
	return fn, nil
}

// greekFinalSigma turns σ into ς when it ends a word.
func greekFinalSigma(s string) string {
	rs := []rune(s)
	for i, r := range rs {
		if r != 'σ' {
			continue
		}
		if i == 0 || !unicode.IsLetter(rs[i-1]) {
			continue
		}
		if i+1 < len(rs) && unicode.IsLetter(rs[i+1]) {
			continue
		}
		rs[i] = 'ς'
	}
	return string(rs)
}
