package message

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat/internal/pkg/errs"
)

func TestValidateDraft(t *testing.T) {
	img := Image{Width: 10, Height: 10, URL: "https://cdn.test/a.png"}

	tests := []struct {
		name    string
		draft   Draft
		wantErr int
	}{
		{name: "text only", draft: Draft{Text: "hi"}},
		{name: "images only", draft: Draft{Images: []Image{img}}},
		{name: "empty", draft: Draft{}, wantErr: errs.ErrMessageEmpty},
		{name: "too long", draft: Draft{Text: strings.Repeat("a", MaxContentLength+1)}, wantErr: errs.ErrMessageContentTooLong},
		{name: "too many images", draft: Draft{Images: []Image{img, img, img, img}}, wantErr: errs.ErrAttachmentCountInvalid},
		{name: "image without url", draft: Draft{Images: []Image{{Width: 1}}}, wantErr: errs.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDraft(tt.draft)
			if tt.wantErr == 0 {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.wantErr, err.Code)
		})
	}
}

func TestSplit(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	img := Image{Width: 1, Height: 1, URL: "u"}

	t.Run("text and images", func(t *testing.T) {
		msgs := Split("a", "b", Draft{Text: "look", Images: []Image{img}}, now, "ind-1")
		require.Len(t, msgs, 2)

		assert.Equal(t, "look", msgs[0].Content)
		assert.Equal(t, now.Add(-time.Millisecond), msgs[0].CreatedAt)
		assert.Equal(t, "ind-1", msgs[0].SendingIndicatorID)

		assert.Equal(t, []Image{img}, msgs[1].Images)
		assert.Equal(t, now, msgs[1].CreatedAt)
		assert.Empty(t, msgs[1].SendingIndicatorID)
		assert.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt))
	})

	t.Run("text only", func(t *testing.T) {
		msgs := Split("a", "b", Draft{Text: "hi"}, now, "")
		require.Len(t, msgs, 1)
		assert.Equal(t, now, msgs[0].CreatedAt)
		assert.NotNil(t, msgs[0].Images)
	})

	t.Run("images only carry the indicator", func(t *testing.T) {
		msgs := Split("a", "b", Draft{Images: []Image{img, img}}, now, "ind-2")
		require.Len(t, msgs, 1)
		assert.Equal(t, "ind-2", msgs[0].SendingIndicatorID)
		assert.Equal(t, []string{"u", "u"}, msgs[0].ImageURLs())
	})
}
