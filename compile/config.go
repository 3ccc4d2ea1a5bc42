package compile

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/joeshaw/envdecode"
)

// Config is read from the environment once per process.
type Config struct {
	// DisableCodegen forces every validator onto the interpreter.
	DisableCodegen bool `env:"TYPEBRIDGE_DISABLE_CODEGEN,default=false"`
}

var (
	configOnce sync.Once
	config     Config
	probeOnce  sync.Once
	probeOK    bool
)

// LoadConfig returns the process configuration.
func LoadConfig() Config {
	configOnce.Do(func() {
		// A missing variable leaves the defaults in place.
		_ = envdecode.Decode(&config)
	})
	return config
}

// CodegenAllowed reports whether generated programs can be compiled and
// run in this process. The probe runs once.
func CodegenAllowed() bool {
	if LoadConfig().DisableCodegen {
		return false
	}
	probeOnce.Do(func() {
		defer func() {
			if recover() != nil {
				probeOK = false
			}
		}()
		prog, err := expr.Compile("v == nil", expr.Env(checkEnv{}), expr.AsBool())
		if err != nil {
			return
		}
		out, err := expr.Run(prog, checkEnv{})
		probeOK = err == nil && out == true
	})
	return probeOK
}
