package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/nativeai/nativechat/app/repository"
	"github.com/nativeai/nativechat/internal/pkg/cache"
)

const (
	CacheKeyUsers         = "statistics:users:total"
	CacheKeyConversations = "statistics:conversations:total"
	CacheKeyMessages      = "statistics:messages:total"
	CacheKeyTokens        = "statistics:tokens:total"
	CacheExpiration       = 30 * time.Minute
)

// StatisticsData holds the aggregate counters for the admin dashboard
type StatisticsData struct {
	TotalUsers         int64 `json:"total_users"`
	TotalConversations int64 `json:"total_conversations"`
	TotalMessages      int64 `json:"total_messages"`
	TotalTokensUsed    int64 `json:"total_tokens_used"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache checks whether the cache refresh interval has elapsed
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached counters when they are stale
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// UpdateStatisticsCache recomputes all counters and stores them in the cache
func UpdateStatisticsCache() error {
	repos := repository.GetGlobalRepositories()

	totalUsers, err := repos.User.Count()
	if err != nil {
		log.Printf("Error counting users: %v", err)
		return err
	}
	totalConversations, err := repos.Conversation.Count()
	if err != nil {
		log.Printf("Error counting conversations: %v", err)
		return err
	}
	totalMessages, err := repos.Conversation.CountMessages()
	if err != nil {
		log.Printf("Error counting messages: %v", err)
		return err
	}
	totalTokens, err := repos.Usage.TotalTokensUsed()
	if err != nil {
		log.Printf("Error summing token usage: %v", err)
		return err
	}

	for key, value := range map[string]int64{
		CacheKeyUsers:         totalUsers,
		CacheKeyConversations: totalConversations,
		CacheKeyMessages:      totalMessages,
		CacheKeyTokens:        totalTokens,
	} {
		if err := cache.Set(key, strconv.FormatInt(value, 10), CacheExpiration); err != nil {
			log.Printf("Error caching %s: %v", key, err)
			return err
		}
	}
	return nil
}

// GetTotalUsers returns the user count from cache or database
func GetTotalUsers() int64 {
	return cachedCount(CacheKeyUsers, func() (int64, error) {
		return repository.GetGlobalRepositories().User.Count()
	})
}

// GetTotalConversations returns the conversation count from cache or database
func GetTotalConversations() int64 {
	return cachedCount(CacheKeyConversations, func() (int64, error) {
		return repository.GetGlobalRepositories().Conversation.Count()
	})
}

// GetTotalMessages returns the message count from cache or database
func GetTotalMessages() int64 {
	return cachedCount(CacheKeyMessages, func() (int64, error) {
		return repository.GetGlobalRepositories().Conversation.CountMessages()
	})
}

// GetTotalTokensUsed returns the all-time token total from cache or database
func GetTotalTokensUsed() int64 {
	return cachedCount(CacheKeyTokens, func() (int64, error) {
		return repository.GetGlobalRepositories().Usage.TotalTokensUsed()
	})
}

// GetStatisticsData returns all aggregate counters
func GetStatisticsData() StatisticsData {
	return StatisticsData{
		TotalUsers:         GetTotalUsers(),
		TotalConversations: GetTotalConversations(),
		TotalMessages:      GetTotalMessages(),
		TotalTokensUsed:    GetTotalTokensUsed(),
	}
}

// cachedCount reads a counter from the cache, falling back to the database
// and repopulating the cache on a miss.
func cachedCount(key string, load func() (int64, error)) int64 {
	val, err := cache.Get(key)
	if err == nil {
		if count, perr := strconv.ParseInt(val, 10, 64); perr == nil {
			return count
		}
	}

	count, err := load()
	if err != nil {
		log.Printf("Error loading counter %s: %v", key, err)
		return 0
	}
	if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
		log.Printf("Error caching %s: %v", key, err)
	}
	return count
}
