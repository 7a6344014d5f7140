package receipts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/omaraldhaheri/zaina-backend/pkg/errors"
)

type fakeSession struct {
	pdf        []byte
	renderErr  error
	closeCount int
	lastWidth  int
	lastHeight int
}

func (f *fakeSession) RenderPDF(ctx context.Context, html string, width, height int) ([]byte, error) {
	f.lastWidth = width
	f.lastHeight = height
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return f.pdf, nil
}

func (f *fakeSession) Close() {
	f.closeCount++
}

func newTestConverter(session *fakeSession, factoryErr error) *Converter {
	return &Converter{
		newSession: func(ctx context.Context) (browserSession, error) {
			if factoryErr != nil {
				return nil, factoryErr
			}
			return session, nil
		},
	}
}

func TestConvertSuccessTearsDownOnce(t *testing.T) {
	session := &fakeSession{pdf: []byte("%PDF-1.7 fake")}
	conv := newTestConverter(session, nil)

	pdf, err := conv.Convert(context.Background(), Render(sampleOrder(3), "ord-1"))
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.7 fake"), pdf)
	require.Equal(t, 1, session.closeCount)
}

func TestConvertFailureStillTearsDownOnce(t *testing.T) {
	session := &fakeSession{renderErr: errors.New("navigation aborted")}
	conv := newTestConverter(session, nil)

	_, err := conv.Convert(context.Background(), Render(sampleOrder(1), "ord-2"))
	require.Error(t, err)
	require.Equal(t, 1, session.closeCount)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeRender, typed.Code())
}

func TestConvertLaunchFailure(t *testing.T) {
	conv := newTestConverter(nil, errors.New("chrome not found"))

	_, err := conv.Convert(context.Background(), "<svg/>")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeRender, typed.Code())
}

func TestConvertEmptyOutputIsAnError(t *testing.T) {
	session := &fakeSession{}
	conv := newTestConverter(session, nil)

	_, err := conv.Convert(context.Background(), "<svg/>")
	require.Error(t, err)
	require.Equal(t, 1, session.closeCount)
}

func TestConvertViewportMatchesIntrinsicSize(t *testing.T) {
	session := &fakeSession{pdf: []byte("pdf")}
	conv := newTestConverter(session, nil)

	svg := Render(sampleOrder(5), "ord-3")
	_, err := conv.Convert(context.Background(), svg)
	require.NoError(t, err)
	require.Equal(t, DocWidth, session.lastWidth)
	require.Equal(t, Height(5), session.lastHeight)
}

func TestIntrinsicSizeDefaults(t *testing.T) {
	w, h := intrinsicSize("<svg>no attributes</svg>")
	require.Equal(t, DocWidth, w)
	require.Equal(t, Height(0), h)

	w, h = intrinsicSize(`<svg width="640" height="900">`)
	require.Equal(t, 640, w)
	require.Equal(t, 900, h)
}
