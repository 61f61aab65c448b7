package uploader

import (
	"fmt"
	"time"

	"github.com/airbusgeo/stac-uploader/common"
)

// AssetSuccess is an asset available at Href.
// Uploaded is false if the asset was already remote or was excluded from the upload.
type AssetSuccess struct {
	Key      string
	Href     string
	Uploaded bool
}

// AssetFailure is an asset whose file could not be uploaded
type AssetFailure struct {
	Key string
	Err error
}

// UploadResult reports the outcome of each asset of an item, in the order of the assets of the item.
// Each asset is either in Succeeded or in Failed.
type UploadResult struct {
	Succeeded  []AssetSuccess
	Failed     []AssetFailure
	Registered bool
}

func newUploadResult(pairs []common.KeyAsset, outcomes []outcome) *UploadResult {
	r := &UploadResult{Succeeded: []AssetSuccess{}, Failed: []AssetFailure{}}
	for i, o := range outcomes {
		if o.err != nil {
			r.Failed = append(r.Failed, AssetFailure{Key: pairs[i].Key, Err: o.err})
		} else {
			r.Succeeded = append(r.Succeeded, AssetSuccess{Key: pairs[i].Key, Href: o.href, Uploaded: o.uploaded})
		}
	}
	return r
}

// Complete returns true if all the assets succeeded
func (r *UploadResult) Complete() bool {
	return len(r.Failed) == 0
}

// UploadedHrefs returns the hrefs of the files uploaded during the call
func (r *UploadResult) UploadedHrefs() []string {
	var hrefs []string
	for _, s := range r.Succeeded {
		if s.Uploaded {
			hrefs = append(hrefs, s.Href)
		}
	}
	return hrefs
}

// FailedKeys returns the keys of the failed assets
func (r *UploadResult) FailedKeys() []string {
	keys := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		keys[i] = f.Key
	}
	return keys
}

// Event returns the event summarizing the result
func (r *UploadResult) Event(item *common.Item) common.UploadEvent {
	evt := common.UploadEvent{
		ItemID:     item.ID,
		Collection: item.Collection,
		Succeeded:  make([]string, len(r.Succeeded)),
		Failed:     r.FailedKeys(),
		Registered: r.Registered,
		Date:       time.Now().UTC(),
	}
	for i, s := range r.Succeeded {
		evt.Succeeded[i] = s.Key
	}
	switch {
	case !r.Registered:
		evt.Status = common.StatusFAILED
	case len(r.Failed) > 0:
		evt.Status = common.StatusPARTIAL
	default:
		evt.Status = common.StatusDONE
	}
	return evt
}

// PartialFailure is returned when the item could not be registered.
// Result reports the uploads that were done before: the uploaded files are left in the storage.
type PartialFailure struct {
	Result *UploadResult
	Err    error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%d asset(s) uploaded, %d failed, item not registered: %v",
		len(e.Result.UploadedHrefs()), len(e.Result.Failed), e.Err)
}

func (e *PartialFailure) Unwrap() error {
	return e.Err
}
