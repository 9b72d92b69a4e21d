package config

import "testing"

func TestSweepTime(t *testing.T) {
	cases := []struct {
		in           string
		hour, minute int
	}{
		{"02:00", 2, 0},
		{"23:45", 23, 45},
		{"garbage", 2, 0},
		{"99:99", 2, 0},
		{"", 2, 0},
	}
	for _, tc := range cases {
		c := &Config{SweepAt: tc.in}
		h, m := c.SweepTime()
		if h != tc.hour || m != tc.minute {
			t.Errorf("SweepTime(%q) = %d:%d, want %d:%d", tc.in, h, m, tc.hour, tc.minute)
		}
	}
}

func TestDefaultRolesAndProtection(t *testing.T) {
	c := &Config{DefaultRoleName: "USER", AdminRoleName: "ADMIN", OwnerRoleName: "OWNER"}

	roles := c.DefaultRoles()
	if len(roles) != 3 {
		t.Fatalf("roles = %v", roles)
	}
	for _, name := range []string{"USER", "ADMIN", "OWNER"} {
		if roles[name] == "" {
			t.Errorf("role %s has no description", name)
		}
	}

	protected := c.ProtectedRoleNames()
	if len(protected) != 2 || protected[0] != "USER" || protected[1] != "ADMIN" {
		t.Errorf("protected = %v; the owner role must stay renamable", protected)
	}
}

func TestPostgresDSN(t *testing.T) {
	c := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "d", DBSSLMode: "disable"}
	want := "postgres://u:p@h:5432/d?sslmode=disable"
	if got := c.PostgresDSN(); got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}

func TestCORSOriginsSplitsAndTrims(t *testing.T) {
	c := &Config{CORSAllowedOrigins: " https://a.example , https://b.example ,"}
	got := c.CORSOrigins()
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("origins = %v", got)
	}
}
