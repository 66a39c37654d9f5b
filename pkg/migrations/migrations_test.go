package migrations_test

import (
	"fmt"
	"os"
	"path"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/reviewdesk/review-engine/internal/config"
	"github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/pkg/migrations"
	"gorm.io/gorm"
)

var tables = []string{"reroute_entries", "reroutes", "submission_history", "submissions", "answers", "questions", "reviewers"}

var _ = Describe("migrations", Ordered, func() {
	Context("migration folder", func() {
		It("fails when the folder does not exist", func() {
			cfg := config.NewDefault()
			cfg.Database.Type = "sqlite"
			cfg.Database.Name = ":memory:"
			db, err := store.InitDB(cfg)
			Expect(err).To(BeNil())

			cfg.Service.MigrationFolder = "some folder"
			Expect(migrations.MigrateStore(db, cfg)).NotTo(Succeed())
		})

		It("fails when the path is a file", func() {
			cfg := config.NewDefault()
			cfg.Database.Type = "sqlite"
			cfg.Database.Name = ":memory:"
			db, err := store.InitDB(cfg)
			Expect(err).To(BeNil())

			cfg.Service.MigrationFolder = "migrations.go"
			err = migrations.MigrateStore(db, cfg)
			Expect(err).NotTo(BeNil())
			Expect(err.Error()).To(ContainSubstring("is not a folder"))
		})
	})

	Context("postgres", Ordered, func() {
		var gormdb *gorm.DB

		BeforeAll(func() {
			if os.Getenv("DB_HOST") == "" {
				Skip("DB_HOST is not set, skipping postgres migrations")
			}
			cfg := config.NewDefault()
			db, err := store.InitDB(cfg)
			Expect(err).To(BeNil())
			gormdb = db
		})

		AfterEach(func() {
			for _, table := range tables {
				gormdb.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s;", table))
			}
			gormdb.Exec("DROP TABLE IF EXISTS goose_db_version;")
		})

		tableExists := func(name string) bool {
			exists := false
			tx := gormdb.Raw(fmt.Sprintf("SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' and tablename = '%s');", name)).Scan(&exists)
			Expect(tx.Error).To(BeNil())
			return exists
		}

		It("migrates from the embedded files", func() {
			Expect(migrations.MigrateStore(gormdb, config.NewDefault())).To(Succeed())
			for _, table := range tables {
				Expect(tableExists(table)).To(BeTrue())
			}
		})

		It("migrates from a folder", func() {
			currentFolder, err := os.Getwd()
			Expect(err).To(BeNil())
			cfg := config.NewDefault()
			cfg.Service.MigrationFolder = path.Join(currentFolder, "sql")

			Expect(migrations.MigrateStore(gormdb, cfg)).To(Succeed())
			for _, table := range tables {
				Expect(tableExists(table)).To(BeTrue())
			}

			Expect(migrations.Status(gormdb, cfg)).To(Succeed())
		})
	})
})
