package schema

// QuotaPair is a byte and inode hard limit pair in raw (normalized) units.
// Quotas are always applied as a pair, never partially.
type QuotaPair struct {
	Bytes  uint64
	Inodes uint64
}

// QuotaSpec is the textual (suffixed) form of a [QuotaPair], as it was given
// in the site configuration.
type QuotaSpec struct {
	ByteQuota  string `mapstructure:"byte_quota"  validate:"required"`
	InodeQuota string `mapstructure:"inode_quota" validate:"required"`
}

// QuotaState is an observed read-only snapshot of the quota accounting for
// one [ProjectIdentity]. It is never mutated, but re-fetched when needed.
type QuotaState struct {
	ByteUsage  uint64
	ByteQuota  uint64
	InodeUsage uint64
	InodeQuota uint64
}

// Limits returns the hard limits of a [QuotaState] as a [QuotaPair].
func (s QuotaState) Limits() QuotaPair {
	return QuotaPair{
		Bytes:  s.ByteQuota,
		Inodes: s.InodeQuota,
	}
}
