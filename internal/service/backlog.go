package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workplan/internal/apperr"
	"workplan/internal/models"
	"workplan/internal/storage/sqlite"
)

// Backlog owns the module → feature → task hierarchy of the project.
type Backlog struct {
	store *sqlite.Store
}

// NewBacklog constructs a Backlog on top of store.
func NewBacklog(store *sqlite.Store) *Backlog {
	return &Backlog{store: store}
}

// Tree is a read model of a backlog with its children resolved by id.
type Tree struct {
	Backlog models.Backlog `json:"backlog"`
	Modules []ModuleNode   `json:"modules"`
}

// ModuleNode is a module and its features.
type ModuleNode struct {
	models.Module
	Features []FeatureNode `json:"features"`
}

// FeatureNode is a feature and its tasks.
type FeatureNode struct {
	models.Feature
	Tasks []models.Task `json:"tasks"`
}

// BacklogName is the name given to a project's backlog when it is created.
func BacklogName(project models.Project) string {
	return project.Name + " Backlog"
}

// Ensure returns the project's backlog, creating it on first use.
func (b *Backlog) Ensure(ctx context.Context, project models.Project) (models.Backlog, error) {
	var backlog models.Backlog
	err := b.store.WithTx(ctx, func(tx *sqlite.Store) error {
		var err error
		backlog, err = tx.EnsureBacklog(ctx, project.ID, BacklogName(project))
		return err
	})
	return backlog, err
}

// Get returns the project's backlog without creating it.
func (b *Backlog) Get(ctx context.Context, project models.Project) (models.Backlog, error) {
	backlog, err := b.store.FindBacklog(ctx, project.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Backlog{}, fmt.Errorf("backlog is not configured: %w", apperr.ErrNotFound)
	}
	return backlog, err
}

// Modules returns the modules of the project's backlog.
func (b *Backlog) Modules(ctx context.Context, project models.Project) ([]models.Module, error) {
	var modules []models.Module
	err := b.store.WithTx(ctx, func(tx *sqlite.Store) error {
		backlog, err := tx.EnsureBacklog(ctx, project.ID, BacklogName(project))
		if err != nil {
			return err
		}
		modules, err = tx.ListModules(ctx, backlog.ID)
		return err
	})
	return modules, err
}

// AddModule appends a module to the project's backlog.
func (b *Backlog) AddModule(ctx context.Context, project models.Project, name, description string) (models.Module, error) {
	if strings.TrimSpace(name) == "" {
		return models.Module{}, fmt.Errorf("%w: module name must not be empty", apperr.ErrInvalidArgument)
	}

	var module models.Module
	err := b.store.WithTx(ctx, func(tx *sqlite.Store) error {
		backlog, err := tx.EnsureBacklog(ctx, project.ID, BacklogName(project))
		if err != nil {
			return err
		}
		module, err = tx.CreateModule(ctx, models.Module{BacklogID: backlog.ID, Name: name, Description: description})
		return err
	})
	return module, err
}

// AddFeature adds a planned feature to a module.
func (b *Backlog) AddFeature(ctx context.Context, moduleID int64, name, description string) (models.Feature, error) {
	if strings.TrimSpace(name) == "" {
		return models.Feature{}, fmt.Errorf("%w: feature name must not be empty", apperr.ErrInvalidArgument)
	}

	var feature models.Feature
	err := b.store.WithTx(ctx, func(tx *sqlite.Store) error {
		if _, err := tx.GetModule(ctx, moduleID); err != nil {
			return err
		}
		var err error
		feature, err = tx.CreateFeature(ctx, models.Feature{
			ModuleID:    moduleID,
			Name:        name,
			Description: description,
			Status:      models.StatusPlanned,
		})
		return err
	})
	return feature, err
}

// AddTask adds a planned task to a feature. The assignee is stored as given;
// role checks belong to the caller.
func (b *Backlog) AddTask(ctx context.Context, featureID int64, name, description string, estimatedHours int, assignee *models.User) (models.Task, error) {
	if strings.TrimSpace(name) == "" {
		return models.Task{}, fmt.Errorf("%w: task name must not be empty", apperr.ErrInvalidArgument)
	}
	if estimatedHours < 1 {
		return models.Task{}, fmt.Errorf("%w: estimated hours must be positive", apperr.ErrInvalidArgument)
	}

	var task models.Task
	err := b.store.WithTx(ctx, func(tx *sqlite.Store) error {
		if _, err := tx.GetFeature(ctx, featureID); err != nil {
			return err
		}
		t := models.Task{
			FeatureID:      featureID,
			Name:           name,
			Description:    description,
			Status:         models.StatusPlanned,
			EstimatedHours: estimatedHours,
		}
		if assignee != nil {
			id := assignee.ID
			t.AssigneeID = &id
		}
		var err error
		task, err = tx.CreateTask(ctx, t)
		return err
	})
	return task, err
}

// Tree loads the whole backlog of the project with three flat queries and
// links the levels by parent id.
func (b *Backlog) Tree(ctx context.Context, project models.Project) (Tree, error) {
	var tree Tree
	err := b.store.WithTx(ctx, func(tx *sqlite.Store) error {
		backlog, err := tx.EnsureBacklog(ctx, project.ID, BacklogName(project))
		if err != nil {
			return err
		}
		modules, err := tx.ListModules(ctx, backlog.ID)
		if err != nil {
			return err
		}
		features, err := tx.ListBacklogFeatures(ctx, backlog.ID)
		if err != nil {
			return err
		}
		tasks, err := tx.ListBacklogTasks(ctx, backlog.ID)
		if err != nil {
			return err
		}

		tasksByFeature := make(map[int64][]models.Task)
		for _, t := range tasks {
			tasksByFeature[t.FeatureID] = append(tasksByFeature[t.FeatureID], t)
		}
		featuresByModule := make(map[int64][]FeatureNode)
		for _, f := range features {
			featuresByModule[f.ModuleID] = append(featuresByModule[f.ModuleID], FeatureNode{
				Feature: f,
				Tasks:   orEmpty(tasksByFeature[f.ID]),
			})
		}

		tree.Backlog = backlog
		tree.Modules = make([]ModuleNode, 0, len(modules))
		for _, m := range modules {
			tree.Modules = append(tree.Modules, ModuleNode{
				Module:   m,
				Features: orEmpty(featuresByModule[m.ID]),
			})
		}
		return nil
	})
	return tree, err
}

// DeleteModule removes a module together with its features and their tasks.
func (b *Backlog) DeleteModule(ctx context.Context, moduleID int64) error {
	return b.store.WithTx(ctx, func(tx *sqlite.Store) error {
		if _, err := tx.GetModule(ctx, moduleID); err != nil {
			return err
		}
		features, err := tx.ListFeatures(ctx, moduleID)
		if err != nil {
			return err
		}
		for _, f := range features {
			if err := deleteFeature(ctx, tx, f.ID); err != nil {
				return err
			}
		}
		return tx.DeleteModule(ctx, moduleID)
	})
}

// DeleteFeature removes a feature together with its tasks.
func (b *Backlog) DeleteFeature(ctx context.Context, featureID int64) error {
	return b.store.WithTx(ctx, func(tx *sqlite.Store) error {
		if _, err := tx.GetFeature(ctx, featureID); err != nil {
			return err
		}
		return deleteFeature(ctx, tx, featureID)
	})
}

// DeleteTask removes a single task.
func (b *Backlog) DeleteTask(ctx context.Context, taskID int64) error {
	return b.store.WithTx(ctx, func(tx *sqlite.Store) error {
		return tx.DeleteTask(ctx, taskID)
	})
}

func deleteFeature(ctx context.Context, tx *sqlite.Store, featureID int64) error {
	if _, err := tx.DeleteFeatureTasks(ctx, featureID); err != nil {
		return err
	}
	return tx.DeleteFeature(ctx, featureID)
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
