// Package config owns the benchmark's Options struct and its one CLI
// surface: a sequence of positional "key value" pairs mixed with bare flag
// switches, inherited unchanged from the reference redis-load tool. An
// optional YAML file can supply the same fields as a base layer, except
// the operation percentages, which are set only on the command line;
// CLI flags always win over the file, and the file always wins over
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/antirez/redis-tools/internal/optab"
)

// Options is the immutable-after-startup configuration for one benchmark
// run.
type Options struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	Clients  int `yaml:"clients"`
	Requests int `yaml:"requests"`

	MinDataSize int `yaml:"mindatasize"`
	MaxDataSize int `yaml:"maxdatasize"`

	Keyspace     uint64 `yaml:"keyspace"`
	HashKeyspace uint64 `yaml:"hashkeyspace"`

	Percentages optab.Percentages `yaml:"-"`

	Rand          bool `yaml:"rand"`
	Check         bool `yaml:"check"`
	LongTail      bool `yaml:"longtail"`
	LongTailOrder int  `yaml:"longtailorder"`
	Keepalive     bool `yaml:"keepalive"`
	Idle          bool `yaml:"idle"`
	Loop          bool `yaml:"loop"`
	Quiet         bool `yaml:"quiet"`
	Debug         bool `yaml:"debug"`

	PRNGSeed uint32 `yaml:"seed"`

	MetricsAddr string `yaml:"metricsaddr"`
}

// Default returns the built-in defaults, before any file or CLI
// overrides are applied.
func Default() Options {
	return Options{
		Host:          "127.0.0.1",
		Port:          6379,
		Clients:       50,
		Requests:      10000,
		MinDataSize:   1,
		MaxDataSize:   64,
		Keyspace:      100000,
		HashKeyspace:  1000,
		Percentages:   optab.Percentages{Set: 50},
		LongTailOrder: 2,
		Keepalive:     true,
		PRNGSeed:      defaultSeed(),
	}
}

func defaultSeed() uint32 {
	return uint32(time.Now().UnixNano()) ^ uint32(os.Getpid())
}

const (
	minPayload = 1
	maxPayload = 1 << 20
)

// clamp enforces the documented bounds: payload sizes to
// [1, 2^20], keyspace and hash-keyspace to >= 1.
func (o *Options) clamp() {
	if o.MinDataSize < minPayload {
		o.MinDataSize = minPayload
	}
	if o.MinDataSize > maxPayload {
		o.MinDataSize = maxPayload
	}
	if o.MaxDataSize < minPayload {
		o.MaxDataSize = minPayload
	}
	if o.MaxDataSize > maxPayload {
		o.MaxDataSize = maxPayload
	}
	if o.MaxDataSize < o.MinDataSize {
		o.MaxDataSize = o.MinDataSize
	}
	if o.Keyspace < 1 {
		o.Keyspace = 1
	}
	if o.HashKeyspace < 1 {
		o.HashKeyspace = 1
	}
}

// LoadFile reads a YAML override file and applies it on top of base. Any
// field the file doesn't set keeps base's value, because fileOverrides
// fields are all pointers.
func LoadFile(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var file fileOverrides
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	file.applyTo(&base)
	return base, nil
}

// fileOverrides mirrors Options but with pointer fields, so that an unset
// key in the YAML document is distinguishable from an explicit zero value
// and leaves the base layer untouched.
type fileOverrides struct {
	Host          *string `yaml:"host"`
	Port          *int    `yaml:"port"`
	Clients       *int    `yaml:"clients"`
	Requests      *int    `yaml:"requests"`
	MinDataSize   *int    `yaml:"mindatasize"`
	MaxDataSize   *int    `yaml:"maxdatasize"`
	Keyspace      *uint64 `yaml:"keyspace"`
	HashKeyspace  *uint64 `yaml:"hashkeyspace"`
	Rand          *bool   `yaml:"rand"`
	Check         *bool   `yaml:"check"`
	LongTail      *bool   `yaml:"longtail"`
	LongTailOrder *int    `yaml:"longtailorder"`
	Keepalive     *bool   `yaml:"keepalive"`
	Idle          *bool   `yaml:"idle"`
	Loop          *bool   `yaml:"loop"`
	Quiet         *bool   `yaml:"quiet"`
	Debug         *bool   `yaml:"debug"`
	Seed          *uint32 `yaml:"seed"`
	MetricsAddr   *string `yaml:"metricsaddr"`
}

func (f *fileOverrides) applyTo(o *Options) {
	setStr(&o.Host, f.Host)
	setInt(&o.Port, f.Port)
	setInt(&o.Clients, f.Clients)
	setInt(&o.Requests, f.Requests)
	setInt(&o.MinDataSize, f.MinDataSize)
	setInt(&o.MaxDataSize, f.MaxDataSize)
	setU64(&o.Keyspace, f.Keyspace)
	setU64(&o.HashKeyspace, f.HashKeyspace)
	setBool(&o.Rand, f.Rand)
	setBool(&o.Check, f.Check)
	setBool(&o.LongTail, f.LongTail)
	setInt(&o.LongTailOrder, f.LongTailOrder)
	setBool(&o.Keepalive, f.Keepalive)
	setBool(&o.Idle, f.Idle)
	setBool(&o.Loop, f.Loop)
	setBool(&o.Quiet, f.Quiet)
	setBool(&o.Debug, f.Debug)
	if f.Seed != nil {
		o.PRNGSeed = *f.Seed
	}
	setStr(&o.MetricsAddr, f.MetricsAddr)
}

func setStr(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
func setU64(dst *uint64, src *uint64) {
	if src != nil {
		*dst = *src
	}
}
func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// ExtractConfigFile pulls a "configfile <path>" pair out of args, if
// present, so the caller can load it before running Parse over the rest.
// Parse itself recognizes and skips "configfile" tokens defensively, but
// callers should use this to actually act on the value.
func ExtractConfigFile(args []string) (path string, rest []string) {
	rest = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == "configfile" && i+1 < len(args) {
			path = args[i+1]
			i++
			continue
		}
		rest = append(rest, args[i])
	}
	return path, rest
}

// UsageError is returned by Parse for an unrecognized token or a missing
// argument; the CLI prints usage text and exits 1 on this error.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// Parse walks args left to right, applying value-taking and switch options
// onto a copy of base, and returns the result. The grammar is the
// reference tool's own: bare tokens pair with the next token as a value
// unless they're a recognized switch.
func Parse(args []string, base Options) (Options, error) {
	o := base
	for i := 0; i < len(args); i++ {
		arg := args[i]
		lastArg := i == len(args)-1

		switch arg {
		case "host":
			if lastArg {
				return o, missingArg(arg)
			}
			o.Host = args[i+1]
			i++
		case "port":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Port = v
			i++
		case "clients":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Clients = v
			i++
		case "requests":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Requests = v
			i++
		case "keepalive":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Keepalive = v != 0
			i++
		case "mindatasize":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.MinDataSize = v
			i++
		case "maxdatasize":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.MaxDataSize = v
			i++
		case "datasize":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.MinDataSize = v
			o.MaxDataSize = v
			i++
		case "keyspace":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Keyspace = uint64(v)
			i++
		case "hashkeyspace":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.HashKeyspace = uint64(v)
			i++
		case "seed":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.PRNGSeed = uint32(v)
			i++
		case "set":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Percentages.Set = v
			i++
		case "del":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Percentages.Del = v
			i++
		case "lpush":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Percentages.LPush = v
			i++
		case "lpop":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Percentages.LPop = v
			i++
		case "hset":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Percentages.HSet = v
			i++
		case "hget":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Percentages.HGet = v
			i++
		case "hgetall":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Percentages.HGetAll = v
			i++
		case "swapin":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			o.Percentages.SwapIn = v
			i++
		case "longtailorder":
			v, err := intArg(args, i, lastArg)
			if err != nil {
				return o, err
			}
			if v < 2 || v > 100 {
				return o, &UsageError{Msg: fmt.Sprintf("longtailorder must be in [2,100], got %d", v)}
			}
			o.LongTailOrder = v
			i++
		case "configfile":
			// Consumed by the caller before Parse runs; skip its argument
			// here so it doesn't get misread as an unknown token.
			if lastArg {
				return o, missingArg(arg)
			}
			i++
		case "metrics-addr":
			if lastArg {
				return o, missingArg(arg)
			}
			o.MetricsAddr = args[i+1]
			i++
		case "rand":
			o.Rand = true
		case "check":
			o.Check = true
		case "longtail":
			o.LongTail = true
		case "big":
			o.Keyspace = 1000000
			o.Requests = 1000000
		case "verybig":
			o.Keyspace = 10000000
			o.Requests = 10000000
		case "quiet":
			o.Quiet = true
		case "loop":
			o.Loop = true
		case "idle":
			o.Idle = true
		case "debug":
			o.Debug = true
		case "help":
			return o, &UsageError{Msg: "help requested"}
		default:
			return o, &UsageError{Msg: fmt.Sprintf("unknown option %q", arg)}
		}
	}
	o.clamp()
	return o, nil
}

func intArg(args []string, i int, lastArg bool) (int, error) {
	if lastArg {
		return 0, missingArg(args[i])
	}
	v, err := strconv.Atoi(args[i+1])
	if err != nil {
		return 0, &UsageError{Msg: fmt.Sprintf("option %q expects an integer, got %q", args[i], args[i+1])}
	}
	return v, nil
}

func missingArg(opt string) error {
	return &UsageError{Msg: fmt.Sprintf("option %q requires an argument", opt)}
}

// Usage is the help text printed for `help` or a parse error, in the
// reference tool's own option-by-option style.
const Usage = `Usage: kvload [options]

  host <addr>             Server hostname (default 127.0.0.1)
  port <port>             Server port (default 6379)
  clients <n>             Number of parallel connections (default 50)
  requests <n>            Total number of requests (default 10000)
  keepalive <0|1>         Use keepalive connections (default 1)
  mindatasize <n>         Min payload size in bytes (default 1)
  maxdatasize <n>         Max payload size in bytes (default 64)
  datasize <n>            Sets both mindatasize and maxdatasize
  keyspace <n>            Number of distinct keys (default 100000)
  hashkeyspace <n>        Number of distinct hash fields (default 1000)
  seed <n>                PRNG seed
  set <pct>               Percentage of SETs (default 50)
  del <pct>               Percentage of DELs
  lpush <pct>             Percentage of LPUSHs
  lpop <pct>              Percentage of LPOPs
  hset <pct>              Percentage of HSETs
  hget <pct>              Percentage of HGETs
  hgetall <pct>           Percentage of HGETALLs
  swapin <pct>            Percentage of DEBUG SWAPINs
  rand                    Fill payloads with key-derived pseudo-random bytes
  check                   Verify payload integrity on GET
  longtail                Use a long-tail key access distribution
  longtailorder <n>       Long-tail shaping order, 2-100 (default 2)
  big                     keyspace=requests=1000000
  verybig                 keyspace=requests=10000000
  quiet                   Only print the final requests/sec line
  loop                    Repeat the benchmark pass forever
  idle                    Hold connections open without sending requests
  debug                   Verbose per-request logging
  configfile <path>       Load a YAML options file before CLI flags
  metrics-addr <host:port> Serve Prometheus metrics on this address
  help                    Print this message
`
