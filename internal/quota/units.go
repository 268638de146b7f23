package quota

import (
	"fmt"
	"math"
	"math/bits"
	"regexp"
	"strconv"
	"strings"

	"github.com/scicomp/clusterstor-tools/internal/schema"
)

// suffixes are the binary-scaled unit suffixes, suffixes[n] meaning 1024^(n+1).
const suffixes = "kMGTPE"

var quotaRegex = regexp.MustCompile(`^(\d+)([kMGTPE]?)$`)

// ParseValue parses a quota value of digits with an optional suffix among
// k, M, G, T, P and E into a raw integer (digits * 1024^n).
func ParseValue(s string) (uint64, error) {
	m := quotaRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("(quota-parse) %w: %q", schema.ErrQuotaFormat, s)
	}

	value, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("(quota-parse) %w: %q: %w", schema.ErrQuotaFormat, s, err)
	}

	if m[2] == "" {
		return value, nil
	}

	exp := strings.Index(suffixes, m[2]) + 1
	scale := uint64(1) << (10 * exp) //nolint:mnd

	hi, lo := bits.Mul64(value, scale)
	if hi != 0 {
		return 0, fmt.Errorf("(quota-parse) %w: %q overflows", schema.ErrQuotaFormat, s)
	}

	return lo, nil
}

// FormatValue formats a raw integer with the largest suffix that represents
// it exactly, so that [ParseValue] yields the same integer again.
func FormatValue(n uint64) string {
	if n == 0 {
		return "0"
	}

	exp := 0
	for exp < len(suffixes) && n%1024 == 0 {
		n /= 1024
		exp++
	}

	if exp == 0 {
		return strconv.FormatUint(n, 10)
	}

	return strconv.FormatUint(n, 10) + string(suffixes[exp-1])
}

// ParsePair parses a [schema.QuotaSpec] into a normalized [schema.QuotaPair].
func ParsePair(spec schema.QuotaSpec) (schema.QuotaPair, error) {
	b, err := ParseValue(spec.ByteQuota)
	if err != nil {
		return schema.QuotaPair{}, fmt.Errorf("byte_quota: %w", err)
	}

	i, err := ParseValue(spec.InodeQuota)
	if err != nil {
		return schema.QuotaPair{}, fmt.Errorf("inode_quota: %w", err)
	}

	return schema.QuotaPair{Bytes: b, Inodes: i}, nil
}

// blockLimit returns the byte limit as accepted by the backend, which
// accounts in kibibytes. Limits are rounded up to the next full kibibyte.
func blockLimit(bytes uint64) string {
	kib := bytes / 1024
	if bytes%1024 != 0 && kib < math.MaxUint64/1024 {
		kib++
	}

	return FormatValue(kib * 1024)
}
