package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/aegis-identity/aegis/internal/auth"
	authpg "github.com/aegis-identity/aegis/internal/auth/postgres"
	"github.com/aegis-identity/aegis/internal/core/datamodel/permission"
	roledm "github.com/aegis-identity/aegis/internal/core/datamodel/role"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a bootstrap account",
	Long:  `Seed the database with a bootstrap account, its system roles and an owner user.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(gormpg.New(gormpg.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{
				"auth_tokens", "signature_keys", "role_permissions", "user_roles",
				"group_roles", "group_users", "account_users",
				"permissions", "roles", "groups", "users", "accounts",
			} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		accountName := "bootstrap"
		var accountID int64
		row := db.Raw("SELECT id FROM accounts WHERE name = ?", accountName).Row()
		if err := row.Scan(&accountID); err != nil {
			if err := db.Exec("INSERT INTO accounts (name, created_at, updated_at) VALUES (?, now(), now())", accountName).Error; err != nil {
				log.Fatalf("failed to insert account: %v", err)
			}
			if err := db.Raw("SELECT id FROM accounts WHERE name = ?", accountName).Row().Scan(&accountID); err != nil {
				log.Fatalf("failed to read seeded account: %v", err)
			}
			fmt.Println("Seeded account:", accountName)
		}

		// Wildcard admin grant: every action on every resource in the account.
		var permID int64
		row = db.Raw(`SELECT id FROM permissions WHERE account_id = ? AND resource_type = ? AND resource_id = 0`,
			accountID, permission.ResourceTypeAll).Row()
		if err := row.Scan(&permID); err != nil {
			if err := db.Exec(`
				INSERT INTO permissions
					(account_id, resource_type, resource_id, description,
					 can_create, can_read, can_update, can_delete, can_execute,
					 is_system_defined, created_at)
				VALUES (?, ?, 0, 'full administrative access', true, true, true, true, true, true, now())`,
				accountID, permission.ResourceTypeAll).Error; err != nil {
				log.Fatalf("failed to insert wildcard permission: %v", err)
			}
			if err := db.Raw(`SELECT id FROM permissions WHERE account_id = ? AND resource_type = ? AND resource_id = 0`,
				accountID, permission.ResourceTypeAll).Row().Scan(&permID); err != nil {
				log.Fatalf("failed to read seeded permission: %v", err)
			}
		}

		roleIDs := map[string]int64{}
		for _, name := range []string{roledm.SystemRoleOwner, roledm.SystemRoleAdmin, roledm.SystemRoleUser} {
			var roleID int64
			row := db.Raw("SELECT id FROM roles WHERE account_id = ? AND name = ?", accountID, name).Row()
			if err := row.Scan(&roleID); err != nil {
				if err := db.Exec(`
					INSERT INTO roles (account_id, name, description, is_system_defined, created_at, updated_at)
					VALUES (?, ?, ?, true, now(), now())`,
					accountID, name, name+" system role").Error; err != nil {
					log.Fatalf("failed to insert role %s: %v", name, err)
				}
				if err := db.Raw("SELECT id FROM roles WHERE account_id = ? AND name = ?", accountID, name).Row().Scan(&roleID); err != nil {
					log.Fatalf("failed to read seeded role %s: %v", name, err)
				}
				fmt.Println("Seeded system role:", name)
			}
			roleIDs[name] = roleID
		}

		for _, name := range []string{roledm.SystemRoleOwner, roledm.SystemRoleAdmin} {
			var exists int
			row := db.Raw("SELECT 1 FROM role_permissions WHERE role_id = ? AND permission_id = ?", roleIDs[name], permID).Row()
			if err := row.Scan(&exists); err != nil {
				if err := db.Exec("INSERT INTO role_permissions (role_id, permission_id, created_at) VALUES (?, ?, now())",
					roleIDs[name], permID).Error; err != nil {
					log.Fatalf("failed to grant permission to %s: %v", name, err)
				}
			}
		}

		adminEmail := "admin@aegis.local"
		hash, _ := bcrypt.GenerateFromPassword([]byte("changeme-on-first-login"), bcrypt.DefaultCost)
		var userID int64
		row = db.Raw("SELECT id FROM users WHERE email = ?", adminEmail).Row()
		if err := row.Scan(&userID); err != nil {
			if err := db.Exec(`
				INSERT INTO users (public_id, username, email, password_hash, created_at, updated_at)
				VALUES (?, ?, ?, ?, now(), now())`,
				uuid.NewString(), "admin", adminEmail, string(hash)).Error; err != nil {
				log.Fatalf("failed to insert admin user: %v", err)
			}
			if err := db.Raw("SELECT id FROM users WHERE email = ?", adminEmail).Row().Scan(&userID); err != nil {
				log.Fatalf("failed to read seeded user: %v", err)
			}
			fmt.Println("Seeded owner user:", adminEmail)
		}

		var exists int
		row = db.Raw("SELECT 1 FROM account_users WHERE account_id = ? AND user_id = ?", accountID, userID).Row()
		if err := row.Scan(&exists); err != nil {
			if err := db.Exec("INSERT INTO account_users (account_id, user_id, created_at) VALUES (?, ?, now())",
				accountID, userID).Error; err != nil {
				log.Fatalf("failed to link user to account: %v", err)
			}
		}

		row = db.Raw("SELECT 1 FROM user_roles WHERE user_id = ? AND role_id = ?", userID, roleIDs[roledm.SystemRoleOwner]).Row()
		if err := row.Scan(&exists); err != nil {
			if err := db.Exec("INSERT INTO user_roles (user_id, role_id, created_at) VALUES (?, ?, now())",
				userID, roleIDs[roledm.SystemRoleOwner]).Error; err != nil {
				log.Fatalf("failed to assign owner role: %v", err)
			}
		}

		row = db.Raw("SELECT 1 FROM signature_keys WHERE user_id = ?", userID).Row()
		if err := row.Scan(&exists); err != nil {
			systemKey, err := cfg.Security.SystemKeyBytes()
			if err != nil {
				log.Fatalf("invalid system key: %v", err)
			}
			keySvc := auth.NewKeyService(authpg.NewRepository(db), systemKey)
			if err := keySvc.MintSignatureKey(context.Background(), userID); err != nil {
				log.Fatalf("failed to mint signature key: %v", err)
			}
			fmt.Println("Minted signature key for owner user")
		}

		fmt.Println("Seeding complete")
	},
}
