package mariadb

import "testing"

func TestDecodeMarkerEmbedding(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantLen int
		wantErr bool
	}{
		{"list of lists", `[[0.1,0.2,0.3]]`, 3, false},
		{"first of several", `[[0.1,0.2],[0.3,0.4,0.5]]`, 2, false},
		{"empty outer", `[]`, 0, true},
		{"empty inner", `[[]]`, 0, true},
		{"flat list", `[0.1,0.2]`, 0, true},
		{"garbage", `not json`, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeMarkerEmbedding([]byte(tc.data))
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tc.wantLen {
				t.Errorf("expected %d values, got %d", tc.wantLen, len(got))
			}
		})
	}
}
