package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// AuthMode names where credentials come from.
type AuthMode string

const (
	AuthCloud AuthMode = "clouds.yaml"
	AuthRC    AuthMode = "rc file"
	AuthEnv   AuthMode = "environment"
)

// Auth describes the selected credential source.
type Auth struct {
	Mode   AuthMode
	Cloud  string
	RCFile string
}

// String renders the source for the run banner.
func (a Auth) String() string {
	switch a.Mode {
	case AuthCloud:
		return fmt.Sprintf("cloud %q (clouds.yaml)", a.Cloud)
	case AuthRC:
		return fmt.Sprintf("rc file %s", a.RCFile)
	default:
		return string(AuthEnv)
	}
}

// ResolveAuth loads the rc file into the process environment if one was given
// and checks that enough credentials are present. clouds.yaml profiles are
// validated by the client when it connects.
func ResolveAuth(opts Options) (Auth, error) {
	if opts.Cloud != "" {
		return Auth{Mode: AuthCloud, Cloud: opts.Cloud}, nil
	}

	auth := Auth{Mode: AuthEnv}
	if opts.RCFile != "" {
		vars, err := LoadRCFile(opts.RCFile)
		if err != nil {
			return Auth{}, err
		}
		for k, v := range vars {
			if err := os.Setenv(k, v); err != nil {
				return Auth{}, &Error{Field: "rc", Msg: fmt.Sprintf("failed to set %s", k), Err: err}
			}
		}
		auth = Auth{Mode: AuthRC, RCFile: opts.RCFile}
	}

	if err := CheckEnvAuth(os.Getenv); err != nil {
		return Auth{}, err
	}
	return auth, nil
}

// CheckEnvAuth requires OS_AUTH_URL plus either application credentials or a
// username and project.
func CheckEnvAuth(getenv func(string) string) error {
	if getenv("OS_AUTH_URL") == "" {
		return &Error{Field: "auth", Msg: "OS_AUTH_URL is not set; use --rc, --cloud or export OpenStack credentials"}
	}
	if getenv("OS_APPLICATION_CREDENTIAL_ID") != "" && getenv("OS_APPLICATION_CREDENTIAL_SECRET") != "" {
		return nil
	}
	if getenv("OS_USERNAME") != "" && getenv("OS_PROJECT_NAME") != "" {
		return nil
	}
	return &Error{Field: "auth", Msg: "need OS_APPLICATION_CREDENTIAL_ID/SECRET or OS_USERNAME and OS_PROJECT_NAME"}
}

// LoadRCFile parses the "export KEY=value" lines of an openrc file.
// Other lines are ignored. Surrounding quotes are stripped from values.
func LoadRCFile(path string) (map[string]string, error) {
	// #nosec G304
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Field: "rc", Msg: "failed to open rc file", Err: err}
	}
	defer func() { _ = f.Close() }()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		rest, ok := strings.CutPrefix(line, "export ")
		if !ok {
			continue
		}
		key, value, ok := strings.Cut(rest, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		vars[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	if err := scanner.Err(); err != nil {
		return nil, &Error{Field: "rc", Msg: "failed to read rc file", Err: err}
	}
	return vars, nil
}
