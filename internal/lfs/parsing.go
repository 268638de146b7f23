package lfs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scicomp/clusterstor-tools/internal/schema"
)

const (
	kibibyte = 1024

	// quotaFields are the columns following the filesystem name:
	// kbytes, quota, limit, grace, files, quota, limit, grace.
	quotaFields = 8

	quotaUsingDefault = "is using default"
)

// parseProject interprets the "project -d" output, e.g. " 1234 P /mnt/dir".
func parseProject(out []byte) (schema.ProjectStamp, error) {
	fields := strings.Fields(string(out))
	if len(fields) < 2 { //nolint:mnd
		return schema.ProjectStamp{}, fmt.Errorf("(lfs-project) %w: %q", ErrUnexpectedOutput, out)
	}

	id, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return schema.ProjectStamp{}, fmt.Errorf("(lfs-project) %w: %q", ErrUnexpectedOutput, out)
	}

	return schema.ProjectStamp{
		ID:      uint32(id),
		Inherit: fields[1] == "P",
	}, nil
}

// parseQuota interprets the "quota -q" output. The filesystem name may be on
// its own line when it is long, so the mountpoint is removed before the
// remaining columns are read.
func parseQuota(out []byte, mountpoint string) (schema.QuotaState, error) {
	text := string(out)

	if strings.Contains(text, quotaUsingDefault) {
		return schema.QuotaState{}, nil
	}

	var fields []string
	for _, f := range strings.Fields(text) {
		if f != mountpoint {
			fields = append(fields, f)
		}
	}

	if len(fields) < quotaFields {
		return schema.QuotaState{}, fmt.Errorf("(lfs-quota) %w: %q", ErrUnexpectedOutput, out)
	}

	values := make([]uint64, 0, 4) //nolint:mnd
	for _, idx := range []int{0, 2, 4, 6} {
		v, err := parseQuotaColumn(fields[idx])
		if err != nil {
			return schema.QuotaState{}, fmt.Errorf("(lfs-quota) %w: %q", ErrUnexpectedOutput, out)
		}
		values = append(values, v)
	}

	return schema.QuotaState{
		ByteUsage:  values[0] * kibibyte,
		ByteQuota:  values[1] * kibibyte,
		InodeUsage: values[2],
		InodeQuota: values[3],
	}, nil
}

// parseQuotaColumn parses a numeric column, stripping the over-quota marker.
func parseQuotaColumn(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSuffix(s, "*"), 10, 64)
}
