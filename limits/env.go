package limits

import "github.com/kelseyhightower/envconfig"

// FromEnv overlays process environment variables onto defaults, using the
// JUSTBASH_ prefix: JUSTBASH_MAX_CALL_DEPTH, JUSTBASH_MAX_COMMAND_COUNT,
// JUSTBASH_MAX_LOOP_ITERATIONS, JUSTBASH_MAX_SOURCE_DEPTH. Embedders opt
// into this explicitly; [bash.New] never reads the environment unless
// asked.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := envconfig.Process("justbash", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
