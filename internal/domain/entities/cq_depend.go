package entities

import (
	"fmt"
	"regexp"
)

const cqDependPrefix = "CQ-DEPEND="

var (
	cqDependLinePattern  = regexp.MustCompile(`(?im)^(CQ.?DEPEND.)(.*)$`)
	cqDependChunkPattern = regexp.MustCompile(`[^, ]+`)
)

// ParseCQDepends extracts the soft dependencies declared in a commit message
// with lines of the form:
//
//	CQ-DEPEND=1234, *5678, CL:I0123456789abcdef0123456789abcdef01234567
//
// Commit hashes are not accepted. Duplicates are dropped, first occurrence wins.
func ParseCQDepends(commitMessage string) ([]PatchQuery, error) {
	var deps []PatchQuery
	seen := make(map[PatchQuery]struct{})

	for _, match := range cqDependLinePattern.FindAllStringSubmatch(commitMessage, -1) {
		prefix, body := match[1], match[2]
		if prefix != cqDependPrefix {
			return nil, fmt.Errorf("expected %q, but got %q", cqDependPrefix, prefix)
		}
		for _, chunk := range cqDependChunkPattern.FindAllString(body, -1) {
			dep, err := ParsePatchDep(chunk, ParseOptions{NoSHA1: true})
			if err != nil {
				return nil, err
			}
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			deps = append(deps, dep)
		}
	}

	return deps, nil
}
