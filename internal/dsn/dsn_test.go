package dsn

import "testing"

func TestParseFullDescriptor(t *testing.T) {
	d, err := Parse(`(DESCRIPTION=
		(ADDRESS=(PROTOCOL=TCP)(HOST=db1.example.com)(PORT=1521))
		(CONNECT_DATA=(SERVICE_NAME=ORCLPDB1)(SERVER=DEDICATED)))`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(d.Addresses) != 1 {
		t.Fatalf("expected 1 address, got %d", len(d.Addresses))
	}
	addr := d.Addresses[0]
	if addr.Host != "db1.example.com" || addr.Port != 1521 || addr.Protocol != "TCP" {
		t.Fatalf("unexpected address %+v", addr)
	}
	if d.ServiceName != "ORCLPDB1" {
		t.Fatalf("unexpected service name %q", d.ServiceName)
	}
	if d.ServerMode != "DEDICATED" {
		t.Fatalf("unexpected server mode %q", d.ServerMode)
	}
}

func TestParseAddressList(t *testing.T) {
	d, err := Parse(`(DESCRIPTION=
		(ADDRESS_LIST=
			(ADDRESS=(HOST=a1)(PORT=1521))
			(ADDRESS=(HOST=a2)(PORT=1522)))
		(CONNECT_DATA=(SID=ORCL)))`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(d.Addresses) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(d.Addresses))
	}
	if d.Addresses[0].Host != "a1" || d.Addresses[1].Host != "a2" {
		t.Fatalf("unexpected address order %+v", d.Addresses)
	}
	if d.SID != "ORCL" {
		t.Fatalf("unexpected SID %q", d.SID)
	}
}

func TestParseDefaultsPortAndProtocol(t *testing.T) {
	d, err := Parse(`(DESCRIPTION=(ADDRESS=(HOST=db1))(CONNECT_DATA=(SERVICE_NAME=ORCL)))`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Addresses[0].Port != 1521 {
		t.Fatalf("expected default port 1521, got %d", d.Addresses[0].Port)
	}
	if d.Addresses[0].Protocol != "TCP" {
		t.Fatalf("expected default protocol TCP, got %q", d.Addresses[0].Protocol)
	}
}

func TestParseSecurityCredentials(t *testing.T) {
	d, err := Parse(`(DESCRIPTION=
		(ADDRESS=(HOST=db1)(PORT=1521))
		(CONNECT_DATA=(SERVICE_NAME=ORCL))
		(SECURITY=(USER_NAME=scott)(PASSWORD=tiger)))`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Username != "scott" || d.Password != "tiger" {
		t.Fatalf("unexpected credentials %+v", d)
	}
}

func TestParseConnectTimeout(t *testing.T) {
	d, err := Parse(`(DESCRIPTION=
		(CONNECT_TIMEOUT=10)
		(ADDRESS=(HOST=db1)(PORT=1521))
		(CONNECT_DATA=(SERVICE_NAME=ORCL)))`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.ConnectTimeoutSeconds != 10 {
		t.Fatalf("expected timeout 10, got %d", d.ConnectTimeoutSeconds)
	}
}

func TestParseRejectsMissingAddress(t *testing.T) {
	_, err := Parse(`(DESCRIPTION=(CONNECT_DATA=(SERVICE_NAME=ORCL)))`)
	if err == nil {
		t.Fatalf("expected error for descriptor without ADDRESS")
	}
}

func TestParseRejectsMissingServiceIdentifier(t *testing.T) {
	_, err := Parse(`(DESCRIPTION=(ADDRESS=(HOST=db1)(PORT=1521)))`)
	if err == nil {
		t.Fatalf("expected error for descriptor without SERVICE_NAME or SID")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		``,
		`DESCRIPTION=(ADDRESS=(HOST=db1)))`,
		`(DESCRIPTION=(ADDRESS=(HOST=db1)(PORT=1521))`,
		`(DESCRIPTION=(ADDRESS=(PORT=notanumber))(CONNECT_DATA=(SID=ORCL)))`,
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Fatalf("expected error parsing %q", c)
		}
	}
}

func TestParseErrorUnwraps(t *testing.T) {
	_, err := Parse(`(DESCRIPTION=(ADDRESS=(PORT=bad))(CONNECT_DATA=(SID=ORCL)))`)
	if err == nil {
		t.Fatalf("expected error")
	}
	var pe *ParseError
	if pe2, ok := err.(*ParseError); ok {
		pe = pe2
	} else {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Unwrap() == nil {
		t.Fatalf("expected wrapped strconv error")
	}
}
