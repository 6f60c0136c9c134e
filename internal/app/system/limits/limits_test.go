package limits

import "testing"

func TestMaxUploadBytes(t *testing.T) {
	tests := []struct {
		mb   int
		want int64
	}{
		{0, DefaultMaxUpload},
		{-5, DefaultMaxUpload},
		{1, 1 << 20},
		{200, 200 << 20},
	}
	for _, tt := range tests {
		if got := MaxUploadBytes(tt.mb); got != tt.want {
			t.Errorf("MaxUploadBytes(%d) = %d, want %d", tt.mb, got, tt.want)
		}
	}
}
