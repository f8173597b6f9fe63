package counter

import (
	"context"
	"strconv"
	"time"

	"github.com/nativeai/nativechat/app/models"
	"github.com/nativeai/nativechat/internal/pkg/cache"
)

const (
	chatRequestsKey       = "chat:counters:daily"
	transcribeRequestsKey = "transcribe:counters:daily"
)

func dayField(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// AddChatRequest increments today's chat request counter in Redis
func AddChatRequest() error {
	client := cache.GetClient()
	if client == nil {
		return nil
	}
	return client.HIncrBy(context.Background(), chatRequestsKey, dayField(time.Now()), 1).Err()
}

// AddTranscribeRequest increments today's transcription request counter in Redis
func AddTranscribeRequest() error {
	client := cache.GetClient()
	if client == nil {
		return nil
	}
	return client.HIncrBy(context.Background(), transcribeRequestsKey, dayField(time.Now()), 1).Err()
}

// ChatRequestsToday returns today's chat request count
func ChatRequestsToday() int {
	return readDay(chatRequestsKey, dayField(time.Now()))
}

// TranscribeRequestsToday returns today's transcription request count
func TranscribeRequestsToday() int {
	return readDay(transcribeRequestsKey, dayField(time.Now()))
}

// ChatRequestsDaily returns the per-day chat request series for the last n
// days, oldest first. Days with no traffic report zero.
func ChatRequestsDaily(n int) []models.DailyStats {
	return dailySeries(chatRequestsKey, n)
}

// TranscribeRequestsDaily returns the per-day transcription series for the
// last n days, oldest first.
func TranscribeRequestsDaily(n int) []models.DailyStats {
	return dailySeries(transcribeRequestsKey, n)
}

func readDay(key, field string) int {
	client := cache.GetClient()
	if client == nil {
		return 0
	}
	val, err := client.HGet(context.Background(), key, field).Result()
	if err != nil {
		return 0
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return count
}

func dailySeries(key string, n int) []models.DailyStats {
	if n <= 0 {
		n = 7
	}
	now := time.Now().UTC()
	series := make([]models.DailyStats, 0, n)
	for i := n - 1; i >= 0; i-- {
		day := dayField(now.AddDate(0, 0, -i))
		series = append(series, models.DailyStats{
			Date:  day,
			Count: readDay(key, day),
		})
	}
	return series
}
