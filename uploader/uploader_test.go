package uploader_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/service"
	"github.com/airbusgeo/stac-uploader/uploader"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("UploadItem", func() {
	var up *uploader.Uploader

	BeforeEach(func() {
		up = uploader.New(catalog, storage, uploader.WithPublisher(publisher))
	})

	Context("when all the local files exist", func() {
		It("should upload the files, rewrite the hrefs and register the item", func() {
			writeAssetFile("image.tif", "image")
			writeAssetFile("thumbnail.png", "thumbnail")
			item := newItem("item-a", asset("image", "image.tif"), asset("thumbnail", "thumbnail.png"))

			res, err := up.UploadItem(ctx, item, assetsDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Failed).To(BeEmpty())
			Expect(res.Registered).To(BeTrue())
			Expect(res.Succeeded).To(Equal([]uploader.AssetSuccess{
				{Key: "image", Href: publicURI("menut-l1a/item-a/image/image.tif"), Uploaded: true},
				{Key: "thumbnail", Href: publicURI("menut-l1a/item-a/thumbnail/thumbnail.png"), Uploaded: true},
			}))

			b, ok := server.Object("menut-l1a/item-a/image/image.tif")
			Expect(ok).To(BeTrue())
			Expect(string(b)).To(Equal("image"))

			registered, ok := server.Item(testCollection, "item-a")
			Expect(ok).To(BeTrue())
			a, _ := registered.Assets.Get("image")
			Expect(a.Href).To(Equal(publicURI("menut-l1a/item-a/image/image.tif")))
			Expect(registered.Assets.Keys()).To(Equal([]string{"image", "thumbnail"}))
			a, _ = item.Assets.Get("thumbnail")
			Expect(a.Href).To(Equal(publicURI("menut-l1a/item-a/thumbnail/thumbnail.png")))
		})

		It("should publish an upload event", func() {
			writeAssetFile("image.tif", "image")
			item := newItem("item-a", asset("image", "image.tif"), asset("remote", "https://example.com/remote.tif"))

			_, err := up.UploadItem(ctx, item, assetsDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.Messages()).To(HaveLen(1))
			var evt common.UploadEvent
			Expect(json.Unmarshal(publisher.Messages()[0], &evt)).To(Succeed())
			Expect(evt.ItemID).To(Equal("item-a"))
			Expect(evt.Collection).To(Equal(testCollection))
			Expect(evt.Status).To(Equal(common.StatusDONE))
			Expect(evt.Succeeded).To(Equal([]string{"image", "remote"}))
			Expect(evt.Failed).To(BeEmpty())
			Expect(evt.Registered).To(BeTrue())
		})
	})

	Context("when a local file is missing", func() {
		It("should report the asset as failed and register the item", func() {
			writeAssetFile("image.tif", "image")
			item := newItem("item-b", asset("image", "image.tif"), asset("mask", "mask.tif"))

			res, err := up.UploadItem(ctx, item, assetsDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Succeeded).To(HaveLen(1))
			Expect(res.Succeeded[0].Key).To(Equal("image"))
			Expect(res.Failed).To(HaveLen(1))
			Expect(res.Failed[0].Key).To(Equal("mask"))
			var lerr service.ErrLocalFile
			Expect(errors.As(res.Failed[0].Err, &lerr)).To(BeTrue())

			registered, ok := server.Item(testCollection, "item-b")
			Expect(ok).To(BeTrue())
			a, _ := registered.Assets.Get("mask")
			Expect(a.Href).To(Equal("mask.tif"))
			a, _ = registered.Assets.Get("image")
			Expect(a.Href).To(Equal(publicURI("menut-l1a/item-b/image/image.tif")))

			var evt common.UploadEvent
			Expect(json.Unmarshal(publisher.Messages()[0], &evt)).To(Succeed())
			Expect(evt.Status).To(Equal(common.StatusPARTIAL))
			Expect(evt.Failed).To(Equal([]string{"mask"}))
		})

		It("should not register the item if no asset could be uploaded", func() {
			item := newItem("item-b", asset("image", "image.tif"), asset("mask", "mask.tif"))

			res, err := up.UploadItem(ctx, item, assetsDir)
			Expect(errors.Is(err, uploader.ErrNothingUploaded)).To(BeTrue())
			Expect(res.Failed).To(HaveLen(2))
			Expect(res.Registered).To(BeFalse())
			Expect(server.ItemWrites()).To(Equal(0))
		})
	})

	Context("when the storage rejects a file", func() {
		It("should report the storage error", func() {
			writeAssetFile("image.tif", "image")
			writeAssetFile("mask.tif", "mask")
			server.FailStorage("menut-l1a/item-s/mask/mask.tif", http.StatusForbidden)
			item := newItem("item-s", asset("image", "image.tif"), asset("mask", "mask.tif"))

			res, err := up.UploadItem(ctx, item, assetsDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Failed).To(HaveLen(1))
			var rerr service.ErrRemote
			Expect(errors.As(res.Failed[0].Err, &rerr)).To(BeTrue())
			Expect(rerr.Status).To(Equal(http.StatusForbidden))
		})
	})

	Context("when the registration fails", func() {
		It("should return the result with the registration error", func() {
			writeAssetFile("image.tif", "image")
			writeAssetFile("thumbnail.png", "thumbnail")
			server.AddItem(newItem("item-c"))
			up = uploader.New(catalog, storage, uploader.WithRegistration(uploader.RegisterCreate), uploader.WithPublisher(publisher))
			item := newItem("item-c", asset("image", "image.tif"), asset("thumbnail", "thumbnail.png"))

			res, err := up.UploadItem(ctx, item, assetsDir)
			Expect(err).To(HaveOccurred())
			Expect(service.IsAlreadyExists(err)).To(BeTrue())
			var partial *uploader.PartialFailure
			Expect(errors.As(err, &partial)).To(BeTrue())
			Expect(partial.Result).To(Equal(res))
			Expect(res.Succeeded).To(HaveLen(2))
			Expect(res.Failed).To(BeEmpty())
			Expect(res.Registered).To(BeFalse())
			Expect(res.UploadedHrefs()).To(HaveLen(2))

			// Uploaded files are left in the storage
			Expect(server.Keys()).To(ConsistOf("menut-l1a/item-c/image/image.tif", "menut-l1a/item-c/thumbnail/thumbnail.png"))

			var evt common.UploadEvent
			Expect(json.Unmarshal(publisher.Messages()[0], &evt)).To(Succeed())
			Expect(evt.Status).To(Equal(common.StatusFAILED))
			Expect(evt.Message).NotTo(BeEmpty())
		})

		It("should replace an existing item by default", func() {
			writeAssetFile("image.tif", "image")
			server.AddItem(newItem("item-c"))
			item := newItem("item-c", asset("image", "image.tif"))

			_, err := up.UploadItem(ctx, item, assetsDir)
			Expect(err).NotTo(HaveOccurred())
			registered, _ := server.Item(testCollection, "item-c")
			Expect(registered.Assets.Keys()).To(Equal([]string{"image"}))
		})

		It("should report an unauthorized catalog", func() {
			server.FailItems(http.StatusUnauthorized)
			item := newItem("item-u", asset("remote", "https://example.com/remote.tif"))

			_, err := up.UploadItem(ctx, item, assetsDir)
			var uerr service.ErrUnauthorized
			Expect(errors.As(err, &uerr)).To(BeTrue())
		})
	})

	Context("when the item has no asset", func() {
		It("should register the item without any upload", func() {
			item := newItem("item-d")

			res, err := up.UploadItem(ctx, item, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Succeeded).To(BeEmpty())
			Expect(res.Failed).To(BeEmpty())
			Expect(server.Uploads()).To(BeEmpty())
			Expect(server.ItemWrites()).To(Equal(1))
		})
	})

	Context("when the assets are remote", func() {
		It("should not upload them", func() {
			item := newItem("item-r", asset("image", "https://example.com/image.tif"), asset("mask", "s3://bucket/mask.tif"))

			res, err := up.UploadItem(ctx, item, "/does/not/exist")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Succeeded).To(Equal([]uploader.AssetSuccess{
				{Key: "image", Href: "https://example.com/image.tif"},
				{Key: "mask", Href: "s3://bucket/mask.tif"},
			}))
			Expect(server.Uploads()).To(BeEmpty())
		})

		It("should be idempotent", func() {
			writeAssetFile("image.tif", "image")
			writeAssetFile("mask.tif", "mask")
			item := newItem("item-i", asset("image", "image.tif"), asset("mask", "mask.tif"))

			_, err := up.UploadItem(ctx, item, assetsDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Uploads()).To(HaveLen(2))

			res, err := up.UploadItem(ctx, item, assetsDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Uploads()).To(HaveLen(2))
			Expect(res.Succeeded).To(HaveLen(2))
			Expect(res.UploadedHrefs()).To(BeEmpty())
		})
	})

	Context("when the assets directory does not exist", func() {
		It("should fail if an asset is local", func() {
			item := newItem("item-x", asset("image", "image.tif"))
			_, err := up.UploadItem(ctx, item, filepath.Join(assetsDir, "missing"))
			var lerr service.ErrLocalFile
			Expect(errors.As(err, &lerr)).To(BeTrue())
			Expect(server.ItemWrites()).To(Equal(0))
		})
	})

	It("should keep the order of the assets whatever the completion order", func() {
		for _, f := range []string{"a.tif", "b.tif", "c.tif", "d.tif"} {
			writeAssetFile(f, f)
		}
		delayed := delayedStorage{Storage: storage, delays: map[string]time.Duration{
			"a.tif": 300 * time.Millisecond,
			"b.tif": 200 * time.Millisecond,
			"c.tif": 100 * time.Millisecond,
		}}
		up = uploader.New(catalog, delayed, uploader.WithMaxWorkers(4))
		item := newItem("item-o", asset("a", "a.tif"), asset("b", "b.tif"), asset("c", "c.tif"), asset("d", "d.tif"))

		res, err := up.UploadItem(ctx, item, assetsDir)
		Expect(err).NotTo(HaveOccurred())
		keys := []string{}
		for _, s := range res.Succeeded {
			keys = append(keys, s.Key)
		}
		Expect(keys).To(Equal([]string{"a", "b", "c", "d"}))
		Expect(server.Uploads()[0]).To(Equal("menut-l1a/item-o/d/d.tif"))
	})

	It("should only upload the included assets", func() {
		writeAssetFile("image.tif", "image")
		writeAssetFile("thumbnail.png", "thumbnail")
		item := newItem("item-n", asset("image", "image.tif"), asset("thumbnail", "thumbnail.png"))

		res, err := up.UploadItem(ctx, item, assetsDir, uploader.WithIncludedAssets("image"))
		Expect(err).NotTo(HaveOccurred())
		Expect(server.Uploads()).To(Equal([]string{"menut-l1a/item-n/image/image.tif"}))
		Expect(res.Succeeded[1]).To(Equal(uploader.AssetSuccess{Key: "thumbnail", Href: "thumbnail.png"}))

		item = newItem("item-m", asset("image", "image.tif"))
		_, err = up.UploadItem(ctx, item, assetsDir, uploader.WithNoAssets())
		Expect(err).NotTo(HaveOccurred())
		Expect(server.Uploads()).To(HaveLen(1))
	})

	It("should fall back on the basename of the href", func() {
		writeAssetFile("image.tif", "image")
		item := newItem("item-f", asset("image", "products/item-f/image.tif"))

		res, err := up.UploadItem(ctx, item, assetsDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Succeeded[0].Href).To(Equal(publicURI("menut-l1a/item-f/image/image.tif")))
	})

	It("should upload the files with the media type of the asset", func() {
		writeAssetFile("image.tif", "image")
		writeAssetFile("metadata.xml", "<metadata/>")
		cog := common.KeyAsset{Key: "image", Asset: &common.Asset{Href: "image.tif", Type: "image/tiff; application=geotiff; profile=cloud-optimized"}}
		item := newItem("item-t", cog, common.KeyAsset{Key: "metadata", Asset: &common.Asset{Href: "metadata.xml"}})

		_, err := up.UploadItem(ctx, item, assetsDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(server.ContentType("menut-l1a/item-t/image/image.tif")).To(Equal("image/tiff; application=geotiff; profile=cloud-optimized"))
		Expect(server.ContentType("menut-l1a/item-t/metadata/metadata.xml")).To(Equal("application/xml"))
	})

	It("should archive the directories", func() {
		writeAssetFile("product.SAFE/manifest.xml", "<manifest/>")
		item := newItem("item-z", asset("product", "product.SAFE"))

		res, err := up.UploadItem(ctx, item, assetsDir, uploader.WithWorkdir(assetsDir))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Succeeded[0].Href).To(Equal(publicURI("menut-l1a/item-z/product/product.SAFE.zip")))
		_, ok := server.Object("menut-l1a/item-z/product/product.SAFE.zip")
		Expect(ok).To(BeTrue())
	})

	Context("when an href designates the assets directory", func() {
		It("should report the asset as failed without uploading the directory", func() {
			writeAssetFile("image.tif", "image")
			writeAssetFile("unrelated.txt", "unrelated")
			item := newItem("item-e", asset("image", "image.tif"), asset("empty", ""), asset("dot", "."),
				asset("dir", "file://"+filepath.ToSlash(assetsDir)))

			res, err := up.UploadItem(ctx, item, assetsDir, uploader.WithWorkdir(os.TempDir()))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Succeeded).To(HaveLen(1))
			Expect(res.Succeeded[0].Key).To(Equal("image"))
			Expect(res.FailedKeys()).To(Equal([]string{"empty", "dot", "dir"}))
			for _, f := range res.Failed {
				var lerr service.ErrLocalFile
				Expect(errors.As(f.Err, &lerr)).To(BeTrue(), f.Key)
			}
			Expect(server.Uploads()).To(Equal([]string{"menut-l1a/item-e/image/image.tif"}))
		})
	})

	Context("when an asset is null", func() {
		It("should report the asset as failed", func() {
			writeAssetFile("image.tif", "image")
			item := newItem("item-n", asset("image", "image.tif"), common.KeyAsset{Key: "nil"})

			var res *uploader.UploadResult
			var err error
			Expect(func() { res, err = up.UploadItem(ctx, item, assetsDir) }).NotTo(Panic())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Succeeded).To(HaveLen(1))
			Expect(res.FailedKeys()).To(Equal([]string{"nil"}))
			var verr common.ErrValidation
			Expect(errors.As(res.Failed[0].Err, &verr)).To(BeTrue())
		})

		It("should not register the item if it is the only asset to upload", func() {
			item := newItem("item-n", common.KeyAsset{Key: "nil"})

			res, err := up.UploadItem(ctx, item, assetsDir)
			Expect(errors.Is(err, uploader.ErrNothingUploaded)).To(BeTrue())
			Expect(res.Registered).To(BeFalse())
			Expect(server.ItemWrites()).To(Equal(0))
		})
	})

	It("should use the storage layout", func() {
		writeAssetFile("image.tif", "image")
		writeAssetFile("mask.tif", "mask")
		item := newItem("MENUT_0001", asset("image", "image.tif"), asset("mask", "mask.tif"))

		_, err := up.UploadItem(ctx, item, assetsDir, uploader.WithKeyFunc(uploader.ArchiveKey("menut")))
		Expect(err).NotTo(HaveOccurred())
		_, err = up.UploadItem(ctx, newItem("MENUT_0002", asset("image", "image.tif")), assetsDir,
			uploader.WithKeyFunc(uploader.ProjectKey("p1")))
		Expect(err).NotTo(HaveOccurred())
		_, err = up.UploadItem(ctx, newItem("MENUT_0003", asset("mask", "mask.tif")), assetsDir,
			uploader.WithKeyFunc(uploader.TemplateKey("{COLLECTION}/{YEAR}/{MONTH}/{ITEM}/{FILENAME}")))
		Expect(err).NotTo(HaveOccurred())
		Expect(server.Keys()).To(Equal([]string{
			"full/menut/l1a/2024/03/07/MENUT_0001/image.tif",
			"full/menut/l1a/2024/03/07/MENUT_0001/mask.tif",
			"menut-l1a/2024/03/MENUT_0003/mask.tif",
			"project/p1/MENUT_0002/image.tif",
		}))
	})

	Context("when the context is cancelled", func() {
		It("should report the assets as cancelled and not register the item", func() {
			writeAssetFile("image.tif", "image")
			item := newItem("item-k", asset("image", "image.tif"), asset("remote", "https://example.com/remote.tif"))
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			res, err := up.UploadItem(cctx, item, assetsDir)
			var cerr service.ErrCancelled
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(res.Failed).To(HaveLen(1))
			Expect(errors.As(res.Failed[0].Err, &cerr)).To(BeTrue())
			Expect(res.Succeeded).To(HaveLen(1))
			Expect(server.ItemWrites()).To(Equal(0))

			var evt common.UploadEvent
			Expect(json.Unmarshal(publisher.Messages()[0], &evt)).To(Succeed())
			Expect(evt.Status).To(Equal(common.StatusCANCELLED))
		})

		It("should report an upload interrupted by the timeout", func() {
			writeAssetFile("image.tif", "image")
			up = uploader.New(catalog, blockingStorage{}, uploader.WithTimeout(100*time.Millisecond))
			item := newItem("item-t", asset("image", "image.tif"))

			res, err := up.UploadItem(ctx, item, assetsDir)
			Expect(err).To(HaveOccurred())
			var cerr service.ErrCancelled
			Expect(errors.As(res.Failed[0].Err, &cerr)).To(BeTrue())
			Expect(errors.Is(res.Failed[0].Err, context.DeadlineExceeded)).To(BeTrue())
			a, _ := item.Assets.Get("image")
			Expect(a.Href).To(Equal("image.tif"))
		})
	})
})

var _ = Describe("UploadItemFile", func() {
	It("should resolve the assets relatively to the item file", func() {
		writeAssetFile("item/image.tif", "image")
		b, err := json.Marshal(newItem("item-j", asset("image", "image.tif")))
		Expect(err).NotTo(HaveOccurred())
		itemFile := filepath.Join(assetsDir, "item", "item-j.json")
		Expect(os.WriteFile(itemFile, b, 0644)).To(Succeed())

		up := uploader.New(catalog, storage)
		item, res, err := up.UploadItemFile(ctx, itemFile, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Complete()).To(BeTrue())
		a, _ := item.Assets.Get("image")
		Expect(a.Href).To(Equal(publicURI("menut-l1a/item-j/image/image.tif")))
	})

	It("should fail on a missing item file", func() {
		up := uploader.New(catalog, storage)
		_, _, err := up.UploadItemFile(ctx, filepath.Join(assetsDir, "missing.json"), "")
		var lerr service.ErrLocalFile
		Expect(errors.As(err, &lerr)).To(BeTrue())
	})
})

var _ = Describe("DeleteItemWithAssets", func() {
	var up *uploader.Uploader

	BeforeEach(func() {
		up = uploader.New(catalog, storage)
		writeAssetFile("image.tif", "image")
		writeAssetFile("mask.tif", "mask")
	})

	It("should delete the files and the item", func() {
		_, err := up.UploadItem(ctx, newItem("item-del", asset("image", "image.tif"), asset("mask", "mask.tif")), assetsDir)
		Expect(err).NotTo(HaveOccurred())

		res, err := up.DeleteItemWithAssets(ctx, "item-del", testCollection, uploader.DeleteOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.FullyDeleted()).To(BeTrue())
		Expect(res.SucceededAssets).To(Equal([]string{"image", "mask"}))
		Expect(res.Item.ID).To(Equal("item-del"))
		Expect(server.Keys()).To(BeEmpty())
		_, ok := server.Item(testCollection, "item-del")
		Expect(ok).To(BeFalse())
	})

	It("should return ErrItemNotFound", func() {
		_, err := up.DeleteItemWithAssets(ctx, "unknown", testCollection, uploader.DeleteOptions{})
		var nf uploader.ErrItemNotFound
		Expect(errors.As(err, &nf)).To(BeTrue())
		Expect(nf.ItemID).To(Equal("unknown"))
	})

	It("should keep the item if an asset cannot be deleted", func() {
		_, err := up.UploadItem(ctx, newItem("item-del", asset("image", "image.tif"), asset("remote", "https://example.com/remote.tif")), assetsDir)
		Expect(err).NotTo(HaveOccurred())

		res, err := up.DeleteItemWithAssets(ctx, "item-del", testCollection, uploader.DeleteOptions{})
		var derr uploader.ErrDelete
		Expect(errors.As(err, &derr)).To(BeTrue())
		Expect(derr.FailedAssets).To(Equal([]string{"remote"}))
		Expect(res.ItemDeleted).To(BeFalse())
		Expect(res.AllAssetsDeleted()).To(BeFalse())
		_, ok := server.Item(testCollection, "item-del")
		Expect(ok).To(BeTrue())

		res, err = up.DeleteItemWithAssets(ctx, "item-del", testCollection, uploader.DeleteOptions{Force: true})
		Expect(errors.As(err, &derr)).To(BeTrue())
		Expect(res.ItemDeleted).To(BeTrue())
		Expect(res.FullyDeleted()).To(BeFalse())
		_, ok = server.Item(testCollection, "item-del")
		Expect(ok).To(BeFalse())
	})

	It("should only delete the item", func() {
		_, err := up.UploadItem(ctx, newItem("item-del", asset("image", "image.tif")), assetsDir)
		Expect(err).NotTo(HaveOccurred())

		res, err := up.DeleteItemWithAssets(ctx, "item-del", testCollection, uploader.DeleteOptions{SkipStorage: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.FullyDeleted()).To(BeTrue())
		Expect(server.Keys()).To(Equal([]string{"menut-l1a/item-del/image/image.tif"}))
	})
})
