package core

import (
	"context"
	"errors"
	"strings"

	"github.com/JonMunkholm/attrmatrix/internal/store"
)

func (in AxisInput) trimmed() AxisInput {
	return AxisInput{
		Name:      strings.TrimSpace(in.Name),
		XNegative: strings.TrimSpace(in.XNegative),
		XPositive: strings.TrimSpace(in.XPositive),
		YNegative: strings.TrimSpace(in.YNegative),
		YPositive: strings.TrimSpace(in.YPositive),
	}
}

func (in AxisInput) complete() bool {
	return in.Name != "" && in.XNegative != "" && in.XPositive != "" && in.YNegative != "" && in.YPositive != ""
}

// resolveAxes looks up the four criteria by name. Any miss is NotFound.
func resolveAxes(ctx context.Context, tx store.Tx, op string, in AxisInput) (store.AxisSetting, error) {
	var ids [4]int64
	for i, name := range [4]string{in.XNegative, in.XPositive, in.YNegative, in.YPositive} {
		c, err := tx.CriterionByName(ctx, name)
		if err != nil {
			return store.AxisSetting{}, lookup(op, "One or more criteria not found", err)
		}
		ids[i] = c.ID
	}
	return store.AxisSetting{
		Name:        in.Name,
		XNegativeID: ids[0],
		XPositiveID: ids[1],
		YNegativeID: ids[2],
		YPositiveID: ids[3],
	}, nil
}

// CreateAxisSetting stores a named binding of four criteria, by id.
func (s *Service) CreateAxisSetting(ctx context.Context, in AxisInput) (AxisSettingView, error) {
	const op = "create axis setting"
	in = in.trimmed()
	if !in.complete() {
		return AxisSettingView{}, invalid(op, CodeRequired, "All axes are required")
	}

	var view AxisSettingView
	err := s.run(ctx, op, func(tx store.Tx) error {
		if _, err := tx.AxisSettingByName(ctx, in.Name); err == nil {
			return duplicate(op, "Axis setting already exists")
		} else if !errors.Is(err, store.ErrNoRows) {
			return err
		}

		setting, err := resolveAxes(ctx, tx, op, in)
		if err != nil {
			return err
		}
		if setting, err = tx.InsertAxisSetting(ctx, setting); err != nil {
			return err
		}
		view, err = axisView(ctx, tx, setting)
		return err
	})
	if err != nil {
		return AxisSettingView{}, err
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionAxisCreate, NewValue: in.Name})
	return view, nil
}

// UpdateAxisSetting rebinds the setting with the given id. The new name may
// equal the setting's own current name.
func (s *Service) UpdateAxisSetting(ctx context.Context, id int64, in AxisInput) (AxisSettingView, error) {
	const op = "update axis setting"
	in = in.trimmed()
	if !in.complete() {
		return AxisSettingView{}, invalid(op, CodeRequired, "All axes are required")
	}

	var (
		view AxisSettingView
		old  string
	)
	err := s.run(ctx, op, func(tx store.Tx) error {
		setting, err := resolveAxes(ctx, tx, op, in)
		if err != nil {
			return err
		}

		existing, err := tx.AxisSettingByID(ctx, id)
		if err != nil {
			return lookup(op, "Axis setting not found", err)
		}
		old = existing.Name

		if other, err := tx.AxisSettingByName(ctx, in.Name); err == nil && other.ID != id {
			return duplicate(op, "Axis setting already exists")
		} else if err != nil && !errors.Is(err, store.ErrNoRows) {
			return err
		}

		setting.ID = id
		if err := tx.UpdateAxisSetting(ctx, setting); err != nil {
			return err
		}
		view, err = axisView(ctx, tx, setting)
		return err
	})
	if err != nil {
		return AxisSettingView{}, err
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionAxisUpdate, OldValue: old, NewValue: in.Name})
	return view, nil
}

// DeleteAxisSetting removes the setting with the given id.
func (s *Service) DeleteAxisSetting(ctx context.Context, id int64) error {
	const op = "delete axis setting"

	var name string
	err := s.run(ctx, op, func(tx store.Tx) error {
		setting, err := tx.AxisSettingByID(ctx, id)
		if err != nil {
			return lookup(op, "Axis setting not found", err)
		}
		name = setting.Name
		return tx.DeleteAxisSetting(ctx, id)
	})
	if err != nil {
		return err
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionAxisDelete, OldValue: name})
	return nil
}

// ListAxisSettings returns every setting with its criteria resolved to their
// current names. Ends whose criterion no longer exists are nil.
func (s *Service) ListAxisSettings(ctx context.Context) ([]AxisSettingView, error) {
	var out []AxisSettingView
	err := s.run(ctx, "list axis settings", func(tx store.Tx) error {
		settings, err := tx.ListAxisSettings(ctx)
		if err != nil {
			return err
		}
		cols, err := tx.ListCriteria(ctx)
		if err != nil {
			return err
		}
		byID := make(map[int64]store.Criterion, len(cols))
		for _, c := range cols {
			byID[c.ID] = c
		}

		out = make([]AxisSettingView, len(settings))
		for i, setting := range settings {
			out[i] = buildAxisView(setting, func(id int64) (store.Criterion, bool) {
				c, ok := byID[id]
				return c, ok
			})
		}
		return nil
	})
	return out, err
}

func axisView(ctx context.Context, tx store.Tx, setting store.AxisSetting) (AxisSettingView, error) {
	var lookupErr error
	view := buildAxisView(setting, func(id int64) (store.Criterion, bool) {
		c, err := tx.CriterionByID(ctx, id)
		if err != nil {
			if !errors.Is(err, store.ErrNoRows) && lookupErr == nil {
				lookupErr = err
			}
			return store.Criterion{}, false
		}
		return c, true
	})
	return view, lookupErr
}

func buildAxisView(setting store.AxisSetting, resolve func(int64) (store.Criterion, bool)) AxisSettingView {
	end := func(id int64) *Criterion {
		c, ok := resolve(id)
		if !ok {
			return nil
		}
		v := criterionFrom(c)
		return &v
	}
	return AxisSettingView{
		ID:   setting.ID,
		Name: setting.Name,
		Axes: Axes{
			XNegative: end(setting.XNegativeID),
			XPositive: end(setting.XPositiveID),
			YNegative: end(setting.YNegativeID),
			YPositive: end(setting.YPositiveID),
		},
	}
}
