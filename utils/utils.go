package utils

import (
	"os"

	"github.com/jwaldrip/odin/cli"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("utils")

var logFormat = logging.MustStringFormatter(
	`%{color}%{time:15:04:05} %{shortfunc} | %{level:.6s} %{color:reset} %{message}`,
)

type ArgsOpt struct {
	Prefix     string
	Kmer       int
	NumCPU     int
	CfgFn      string
	Cpuprofile string
	Verbose    bool
}

// CheckGlobalArgs reads the flags shared by every subcommand
func CheckGlobalArgs(c cli.Command) (opt ArgsOpt, err error) {
	opt.Prefix = c.Flag("p").String()
	if opt.Prefix == "" {
		return opt, errors.New("[CheckGlobalArgs] args 'p' not set")
	}
	opt.CfgFn = c.Flag("C").String()
	opt.Cpuprofile = c.Flag("cpuprofile").String()

	var ok bool
	opt.Kmer, ok = c.Flag("K").Get().(int)
	if !ok {
		return opt, errors.Errorf("[CheckGlobalArgs] args 'K' : %v set error", c.Flag("K").String())
	}
	opt.NumCPU, ok = c.Flag("t").Get().(int)
	if !ok || opt.NumCPU < 1 {
		return opt, errors.Errorf("[CheckGlobalArgs] args 't': %v set error", c.Flag("t").String())
	}
	opt.Verbose, _ = c.Flag("v").Get().(bool)
	return opt, nil
}

// SetupLogging sends colored records to stderr, DEBUG only when verbose
func SetupLogging(verbose bool) {
	backend := logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), logFormat)
	leveled := logging.AddModuleLevel(backend)
	if verbose {
		leveled.SetLevel(logging.DEBUG, "")
	} else {
		leveled.SetLevel(logging.INFO, "")
	}
	logging.SetBackend(leveled)
	log.Debugf("[SetupLogging] verbose logging on")
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func MinInt(a, b int) int {
	if a > b {
		return b
	}
	return a
}
