package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"bizdir/app/models"
	"bizdir/internal/pkg/cache"
	"bizdir/internal/pkg/database"
)

const (
	CacheKeyBusinessesTotal = "statistics:businesses:total"
	CacheKeyBusinessesDaily = "statistics:businesses:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers           = "statistics:users:total"
	CacheExpiration         = 30 * time.Minute
)

// StatisticsData holds the counters shown on the landing page
type StatisticsData struct {
	TodayBusinesses int
	TotalUsers      int
	TotalBusinesses int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache checks whether the cache is due for a refresh
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached counters when the interval passed
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

// ResetCacheUpdateTimer forces the next read to refresh the cache
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache updates all statistics in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	// Count approved listings
	var totalBusinesses int64
	if err := db.Model(&models.Business{}).Where("status = ?", models.BusinessStatusApproved).Count(&totalBusinesses).Error; err != nil {
		log.Printf("Error counting total listings: %v", err)
		return err
	}

	// Count today's submissions
	var todayBusinesses int64
	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	if err := db.Model(&models.Business{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayBusinesses).Error; err != nil {
		log.Printf("Error counting today's listings: %v", err)
		return err
	}

	// Count total users
	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	// Store values in cache
	if err := cache.Set(CacheKeyBusinessesTotal, strconv.FormatInt(totalBusinesses, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total listings: %v", err)
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyBusinessesDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayBusinesses, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's listings: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}

	return nil
}

// GetTotalBusinesses returns the number of approved listings from cache or database
func GetTotalBusinesses() int {
	val, err := cache.Get(CacheKeyBusinessesTotal)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.Business{}).Where("status = ?", models.BusinessStatusApproved).Count(&count).Error; err != nil {
			log.Printf("Error counting total listings: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyBusinessesTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total listings: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTodayBusinesses returns the number of listings submitted today from cache or database
func GetTodayBusinesses() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyBusinessesDaily, today)

	val, err := cache.Get(dailyKey)
	if err != nil {
		var count int64
		db := database.GetDB()
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)

		if err := db.Model(&models.Business{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&count).Error; err != nil {
			log.Printf("Error counting today's listings: %v", err)
			return 0
		}

		if err := cache.Set(dailyKey, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching today's listings: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	val, err := cache.Get(CacheKeyUsers)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total users: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyUsers, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total users: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetStatisticsData returns all statistics data as StatisticsData structure
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TodayBusinesses: GetTodayBusinesses(),
		TotalUsers:      GetTotalUsers(),
		TotalBusinesses: GetTotalBusinesses(),
	}
}
