package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dandantas/pulse/internal/config"
)

func setEnv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

var _ = Describe("Config", func() {
	BeforeEach(func() {
		wd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(GinkgoT().TempDir())).To(Succeed())
		DeferCleanup(os.Chdir, wd)
	})

	Describe("Load", func() {
		It("should apply defaults", func() {
			cfg, err := config.Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.DatabaseDriver).To(Equal(config.DriverMongo))
			Expect(cfg.PingTimeout).To(Equal(2 * time.Second))
			Expect(cfg.WebsiteTimeout).To(Equal(5 * time.Second))
			Expect(cfg.ConnectionPoolSize).To(Equal(100))
			Expect(cfg.DBPoolSize).To(Equal(10))
			Expect(cfg.PingConcurrency).To(Equal(200))
			Expect(cfg.WebsiteConcurrency).To(Equal(100))
			Expect(cfg.SchedulerTickInterval).To(Equal(time.Second))
			Expect(cfg.StatsInterval).To(Equal(time.Minute))
			Expect(cfg.KafkaBrokers).To(BeEmpty())
		})

		It("should read environment overrides", func() {
			setEnv("PING_TIMEOUT", "0.5")
			setEnv("WEBSITE_CONCURRENCY", "7")
			setEnv("DATABASE_DRIVER", "SQLite")
			setEnv("DATABASE_URL", "checker.db")
			setEnv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

			cfg, err := config.Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.PingTimeout).To(Equal(500 * time.Millisecond))
			Expect(cfg.WebsiteConcurrency).To(Equal(7))
			Expect(cfg.DatabaseDriver).To(Equal(config.DriverSQLite))
			Expect(cfg.KafkaBrokers).To(Equal([]string{"kafka-1:9092", "kafka-2:9092"}))
		})

		It("should read a .env file from the working directory", func() {
			Expect(os.WriteFile(filepath.Join(".", ".env"), []byte("PING_CONCURRENCY=42\n"), 0o644)).To(Succeed())
			DeferCleanup(os.Unsetenv, "PING_CONCURRENCY")

			cfg, err := config.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.PingConcurrency).To(Equal(42))
		})

		It("should reject an unknown driver", func() {
			setEnv("DATABASE_DRIVER", "oracle")

			_, err := config.Load()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("DatabaseDriver"))
		})

		It("should require a database URL for sql drivers", func() {
			setEnv("DATABASE_DRIVER", "postgres")

			_, err := config.Load()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("DatabaseURL"))
		})

		It("should reject a zero concurrency cap", func() {
			setEnv("PING_CONCURRENCY", "0")

			_, err := config.Load()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("PingConcurrency"))
		})
	})

	Describe("InitLogger", func() {
		It("should write to the rotating file when configured", func() {
			DeferCleanup(slog.SetDefault, slog.Default())
			path := filepath.Join(GinkgoT().TempDir(), "checker.log")
			closer := config.InitLogger(&config.Config{LogLevel: "debug", LogFormat: "text", LogFile: path})
			Expect(closer.Close()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("Logger initialized"))
		})
	})
})
