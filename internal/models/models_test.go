package models

import "testing"

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"tenant", func() *BaseModel {
			tn := &Tenant{}
			return &tn.BaseModel
		}},
		{"user", func() *BaseModel {
			u := &User{}
			return &u.BaseModel
		}},
		{"role", func() *BaseModel {
			r := &Role{}
			return &r.BaseModel
		}},
		{"permission", func() *BaseModel {
			p := &Permission{}
			return &p.BaseModel
		}},
		{"role_binding", func() *BaseModel {
			b := &RoleBinding{}
			return &b.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model := tc.model()
			if err := model.BeforeCreate(nil); err != nil {
				t.Fatalf("before create: %v", err)
			}
			if model.ID == "" {
				t.Fatal("expected ID to be generated")
			}
		})
	}
}

func TestUserRoleBeforeCreateGeneratesID(t *testing.T) {
	assignment := &UserRole{}
	if err := assignment.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if assignment.ID == "" {
		t.Fatal("expected assignment ID to be generated")
	}
}

func TestPermissionKey(t *testing.T) {
	perm := Permission{Resource: "clients", Action: "write"}
	if got := perm.Key(); got != "clients:write" {
		t.Fatalf("unexpected key: %s", got)
	}
}
