package configuration

import "errors"

// ErrInvalidSite is an error that occurs when the site configuration does not
// satisfy the schema or the validation rules of its defaults.
var ErrInvalidSite = errors.New("invalid site configuration")
