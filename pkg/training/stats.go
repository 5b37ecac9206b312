package training

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const statsHeader = "Timestamp,Batch,EpisodesTrained,SuccessRate,Last50SuccessRate,AverageSteps,FinalEpsilon,Obstacles\n"

// StatsLog appends one CSV line per training batch.
type StatsLog struct {
	mu    sync.Mutex
	file  *os.File
	batch int
}

// OpenStatsLog opens path for appending and writes the header if the file is
// new.
func OpenStatsLog(path string) (*StatsLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open stats file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat stats file: %w", err)
	}
	if info.Size() == 0 {
		if _, err := f.WriteString(statsHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write stats header: %w", err)
		}
	}
	return &StatsLog{file: f}, nil
}

func (l *StatsLog) Append(s Summary, obstacles int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.batch++
	line := fmt.Sprintf("%s,%d,%d,%.1f,%.1f,%.1f,%.3f,%d\n",
		time.Now().Format(time.RFC3339),
		l.batch,
		s.EpisodesTrained,
		s.SuccessRate,
		s.Last50SuccessRate,
		s.AverageSteps,
		s.FinalEpsilon,
		obstacles,
	)
	_, err := l.file.WriteString(line)
	return err
}

func (l *StatsLog) Close() error {
	return l.file.Close()
}
