/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/config"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/database"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/model"
	"github.com/Bhavik-SSBDigital/HAL-sub002/internal/repository"
)

// seedFile 种子文件结构
type seedFile struct {
	Workflows []seedWorkflow `yaml:"workflows"`
	Roles     []seedRole     `yaml:"roles"`
}

// seedWorkflow 种子工作流定义
type seedWorkflow struct {
	Name  string     `yaml:"name"`
	Steps []seedStep `yaml:"steps"`
}

// seedStep 种子步骤定义
type seedStep struct {
	StepNumber    int         `yaml:"step_number"`
	StepName      string      `yaml:"step_name"`
	WorkKind      string      `yaml:"work_kind"`
	AllowParallel bool        `yaml:"allow_parallel"`
	Assignees     []seedActor `yaml:"assignees"`
}

// seedActor 种子执行人引用
type seedActor struct {
	UserID       string `yaml:"user_id"`
	RoleID       string `yaml:"role_id"`
	DepartmentID string `yaml:"department_id"`
}

// seedRole 种子用户角色
type seedRole struct {
	UserID       string `yaml:"user_id"`
	RoleID       string `yaml:"role_id"`
	DepartmentID string `yaml:"department_id"`
}

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed workflow definitions and user roles from a YAML file",
	Long: `Seed the database with workflow definitions and user role assignments.
The seed file is a YAML document with "workflows" and "roles" sections.
Existing workflows with the same name get a new version instead of being overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		seedPath, _ := cmd.Flags().GetString("file")
		if seedPath == "" {
			return fmt.Errorf("seed file is required, use --file")
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		raw, err := os.ReadFile(seedPath)
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
		var seed seedFile
		if err := yaml.Unmarshal(raw, &seed); err != nil {
			return fmt.Errorf("failed to parse seed file: %w", err)
		}

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer func() {
			sqlDB, _ := db.DB()
			if sqlDB != nil {
				sqlDB.Close()
			}
		}()
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		workflowRepo := repository.NewWorkflowRepository(db)
		for _, sw := range seed.Workflows {
			steps := make(model.StepList, 0, len(sw.Steps))
			for _, ss := range sw.Steps {
				assignees := make([]model.ActorRef, 0, len(ss.Assignees))
				for _, sa := range ss.Assignees {
					assignees = append(assignees, model.ActorRef{
						UserID:       sa.UserID,
						RoleID:       sa.RoleID,
						DepartmentID: sa.DepartmentID,
					})
				}
				steps = append(steps, model.Step{
					StepNumber:    ss.StepNumber,
					StepName:      ss.StepName,
					WorkKind:      model.WorkKind(ss.WorkKind),
					AllowParallel: ss.AllowParallel,
					Assignees:     assignees,
				})
			}

			version := 1
			if existing, err := workflowRepo.FindByName(sw.Name); err == nil && existing != nil {
				version = existing.Version + 1
			}
			now := time.Now()
			workflow := &model.WorkflowModel{
				ID:        uuid.New().String(),
				Name:      sw.Name,
				Version:   version,
				Steps:     steps,
				CreatedBy: "seed",
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := workflow.Validate(); err != nil {
				return fmt.Errorf("invalid workflow %q: %w", sw.Name, err)
			}
			if err := workflowRepo.Save(workflow); err != nil {
				return fmt.Errorf("failed to save workflow %q: %w", sw.Name, err)
			}
			log.Printf("Seeded workflow %q version %d", sw.Name, version)
		}

		for _, sr := range seed.Roles {
			role := &model.UserRoleModel{
				ID:           uuid.New().String(),
				UserID:       sr.UserID,
				RoleID:       sr.RoleID,
				DepartmentID: sr.DepartmentID,
				CreatedAt:    time.Now(),
			}
			if err := role.Validate(); err != nil {
				return fmt.Errorf("invalid role assignment for user %q: %w", sr.UserID, err)
			}
			if err := db.Save(role).Error; err != nil {
				return fmt.Errorf("failed to save role assignment for user %q: %w", sr.UserID, err)
			}
		}
		if len(seed.Roles) > 0 {
			log.Printf("Seeded %d user role assignments", len(seed.Roles))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("config", "", "Config file path")
	seedCmd.Flags().StringP("file", "f", "", "Seed YAML file path")
}
