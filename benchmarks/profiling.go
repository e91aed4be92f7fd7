package benchmarks

import (
	"os"
	"path"
	"runtime"
	"runtime/pprof"

	"go.uber.org/zap"
)

// startProfiling starts the cpu profile when requested, the returned function
// stops it and writes the heap profile
func startProfiling(saveFile, cpuprofile, memprofile string) (func(), error) {
	var cpuFile *os.File
	if cpuprofile != "" {
		cpuProfPath := path.Join(saveFile, cpuprofile)
		logger.Info("profiling cpu", zap.String("path", cpuProfPath))
		f, err := os.Create(cpuProfPath)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, err
		}
		cpuFile = f
	}

	return func() {
		if cpuFile != nil {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}
		if memprofile == "" {
			return
		}
		memProfPath := path.Join(saveFile, memprofile)
		logger.Info("profiling memory", zap.String("path", memProfPath))
		f, err := os.Create(memProfPath)
		if err != nil {
			logger.Error("could not create memory profile", zap.Error(err))
			return
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			logger.Error("could not write memory profile", zap.Error(err))
		}
	}, nil
}
