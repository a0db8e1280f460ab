package convert

import (
	"os"

	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/teranos/jflat/logger"
)

// memoryFraction is the share of available memory an input may occupy before
// a warning. Parsed records take several times the input size.
const memoryFraction = 4

// checkMemory warns when the input is large relative to available memory.
// The whole document is materialized, so this is the scalability boundary.
// It never fails the conversion.
func checkMemory(path string, log *zap.SugaredLogger) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Debugw("Memory stats unavailable", logger.FieldError, err)
		return
	}

	if exceedsMemory(info.Size(), vm.Available) {
		log.Warnw("Input is large relative to available memory; conversion may be slow or fail",
			logger.FieldInput, path,
			logger.FieldBytes, info.Size(),
			"available_bytes", vm.Available)
	}
}

func exceedsMemory(size int64, available uint64) bool {
	return available > 0 && size > 0 && uint64(size) > available/memoryFraction
}
