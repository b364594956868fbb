package app

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"time"

	"github.com/astrogo/fitsio"
)

const jpegQuality = 98

// writeImage encodes img to path in the given format
func writeImage(path string, format ImageFormat, img image.Image) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	switch format {
	case ImageJPEG:
		return jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality})
	default:
		return png.Encode(out, img)
	}
}

// writeFITSFile saves the waterfall as a FITS image to path
func writeFITSFile(path string, wf *WaterfallData, observationID int64) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	return writeFITS(out, wf, observationID)
}

// writeFITS streams the waterfall as a 64-bit float primary image. NAXIS1 is
// frequency, NAXIS2 is time, flagged samples are NaN.
func writeFITS(w io.Writer, wf *WaterfallData, observationID int64) error {
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()

	im := fitsio.NewImage(-64, []int{wf.Width, wf.Height})
	defer im.Close()

	if err = im.Header().Append(fitsCards(wf, observationID)...); err != nil {
		return fmt.Errorf("writing FITS header: %w", err)
	}

	data := make([]float64, 0, wf.Width*wf.Height)
	for t := 0; t < wf.Height; t++ {
		for f := 0; f < wf.Width; f++ {
			v, ok := wf.Values.Value(t, f, 0)
			if !ok {
				v = math.NaN()
			}
			data = append(data, v)
		}
	}
	if err = im.Write(data); err != nil {
		return fmt.Errorf("writing FITS image: %w", err)
	}
	return fits.Write(im)
}

func fitsCards(wf *WaterfallData, observationID int64) []fitsio.Card {
	return []fitsio.Card{
		{Name: "OBJECT", Value: wf.Baseline.String(), Comment: "baseline"},
		{Name: "OBS_ID", Value: int(observationID), Comment: "observation ID"},
		{Name: "FEED1", Value: wf.Baseline.Feed1},
		{Name: "FEED2", Value: wf.Baseline.Feed2},
		{Name: "POL", Value: wf.Baseline.Pol, Comment: "polarization product"},
		{Name: "BUNIT", Value: wf.Part.String(), Comment: "visibility part"},
		{Name: "DATE-OBS", Value: wf.TimestampStart.UTC().Format(time.RFC3339Nano)},
		{Name: "CTYPE1", Value: "FREQ"},
		{Name: "CUNIT1", Value: "Hz"},
		{Name: "CRPIX1", Value: 1.0},
		{Name: "CRVAL1", Value: wf.FrequencyMin * hzPerMHz},
		{Name: "CDELT1", Value: wf.ChannelWidth() * hzPerMHz},
		{Name: "CTYPE2", Value: "TIME"},
		{Name: "CUNIT2", Value: "s"},
		{Name: "CRPIX2", Value: 1.0},
		{Name: "CRVAL2", Value: 0.0},
		{Name: "CDELT2", Value: wf.RowDuration().Seconds()},
	}
}
