package postprocess

import (
	"os"

	"bandcampdl/internal"
)

// Verify reconciles the pre- and post-download extension scans with the
// filenames the provider reported. The download succeeded if the scan diff is
// non-empty or any reported file still exists; renamed-in-place outputs make
// the second check necessary.
func (s *Service) Verify(before, after, downloaded map[string]struct{}) VerifyResult {
	diff := make(map[string]struct{})
	for path := range after {
		if _, ok := before[path]; !ok {
			diff[path] = struct{}{}
		}
	}
	res := VerifyResult{NewFiles: internal.SortedByBase(diff), OK: len(diff) > 0}
	if !res.OK {
		for path := range downloaded {
			if _, err := os.Stat(path); err == nil {
				res.OK = true
				break
			}
		}
	}
	return res
}
