package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"donorflow/internal/config"
	"donorflow/internal/models"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// 加载配置
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
	cfg := config.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
			cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port,
		)
	}

	// 连接数据库
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Starting database migration...")

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Donor{},
		&models.Donation{},
		&models.Segment{},
		&models.SegmentMember{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migration completed successfully!")

	// 创建索引
	log.Println("Creating additional indexes...")

	// 为捐赠表创建复合索引
	db.Exec("CREATE INDEX IF NOT EXISTS idx_donations_donor_received ON donations(donor_id, received_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_donations_campaign ON donations(campaign)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_donations_channel ON donations(channel)")

	// 为捐赠人表创建索引
	db.Exec("CREATE INDEX IF NOT EXISTS idx_donors_tier ON donors(tier)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_donors_engagement ON donors(engagement_score)")

	// 为分组成员表创建索引
	db.Exec("CREATE INDEX IF NOT EXISTS idx_segment_members_donor ON segment_members(donor_id)")

	log.Println("Additional indexes created successfully!")

	// 插入默认数据
	if len(os.Args) > 1 && os.Args[1] == "--seed" {
		log.Println("Seeding default data...")
		seedDefaultData(db)
		log.Println("Default data seeded successfully!")
	}

	log.Println("Migration process completed!")
}

func seedDefaultData(db *gorm.DB) {
	// 创建默认分组
	for _, seg := range []models.Segment{
		{ID: "seed-major-donors", Name: "major-donors", Description: "Donors at or above the major gift threshold"},
		{ID: "seed-new-donors", Name: "new-donors", Description: "First gift within the last 30 days"},
		{ID: "seed-lapsed", Name: "lapsed", Description: "No gift within the last 12 months"},
	} {
		var existing models.Segment
		if err := db.Where("name = ?", seg.Name).First(&existing).Error; err != nil {
			db.Create(&seg)
			log.Printf("Created segment %s", seg.Name)
		}
	}

	// 创建测试捐赠人
	var testDonor models.Donor
	if err := db.Where("email = ?", "donor@example.org").First(&testDonor).Error; err != nil {
		testDonor = models.Donor{
			ID:        "seed-test-donor",
			Email:     "donor@example.org",
			FirstName: "Test",
			LastName:  "Donor",
			Tier:      "standard",
		}
		db.Create(&testDonor)

		db.Create(&models.Donation{
			DonorID:    testDonor.ID,
			Amount:     25,
			Currency:   "USD",
			Channel:    "online",
			Campaign:   "seed",
			ReceivedAt: time.Now(),
		})
		log.Println("Created test donor")
	}
}
