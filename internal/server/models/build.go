package models

const ChecksumSeedLength = 20

// BuildInfo is one known client build with the seeds used to validate the
// client executable checksum on each platform.
type BuildInfo struct {
	MajorVersion  uint32
	MinorVersion  uint32
	BugfixVersion uint32
	HotfixVersion [4]byte
	Build         uint32
	WindowsHash   [ChecksumSeedLength]byte
	MacHash       [ChecksumSeedLength]byte
}

// Hotfix returns the hotfix letter(s) without trailing zero bytes.
func (b BuildInfo) Hotfix() string {
	n := 0
	for n < len(b.HotfixVersion) && b.HotfixVersion[n] != 0 {
		n++
	}
	return string(b.HotfixVersion[:n])
}
