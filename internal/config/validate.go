package config

import (
	"net/url"
	"os"
)

// Validate checks flag combinations that can be rejected without any I/O.
func (o Options) Validate() error {
	if o.RCFile != "" && o.Cloud != "" {
		return &Error{Field: "auth", Msg: "--rc and --cloud are mutually exclusive"}
	}
	if o.RCFile != "" {
		if _, err := os.Stat(o.RCFile); err != nil {
			return &Error{Field: "rc", Msg: "rc file does not exist", Err: err}
		}
	}
	if o.Pushgateway != "" {
		u, err := url.Parse(o.Pushgateway)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &Error{Field: "pushgateway", Msg: "must be an absolute URL"}
		}
	}
	if o.File != "" && o.Export != "" && o.File == o.Export {
		return &Error{Field: "export", Msg: "must differ from --file"}
	}
	return nil
}
