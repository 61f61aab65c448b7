package stac_test

import (
	"errors"
	"fmt"
	"time"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/interface/stac"
	"github.com/airbusgeo/stac-uploader/service"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func newTestItem(id, collection string) *common.Item {
	item := common.NewItem(id, collection, time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC))
	item.SetProperty(common.TagPlatformDesignator, "2023-174B")
	item.SetProperty(common.TagProcessingLevel, "L1A")
	item.BBox = []float64{2, 43, 3, 44}
	item.Assets.Set("image", &common.Asset{Href: "https://storage/image.tif", Type: "image/tiff", Roles: []string{common.RoleData}})
	return item
}

func newTestCollection(id string) *common.Collection {
	start := "2024-01-01T00:00:00Z"
	return common.NewCollection(id, "test collection", "CC-BY-4.0", common.Extent{
		Spatial:  common.SpatialExtent{BBox: [][]float64{{-180, -90, 180, 90}}},
		Temporal: common.TemporalExtent{Interval: [][]*string{{&start, nil}}},
	})
}

var _ = Describe("Items", func() {
	var err error

	BeforeEach(func() {
		server.AddCollection(newTestCollection("menut-l1a"))
	})

	Context("creating an item", func() {
		It("should create then fetch it", func() {
			err = client.CreateItem(ctx, newTestItem("item-1", "menut-l1a"))
			Expect(err).NotTo(HaveOccurred())

			item, err := client.FetchItem(ctx, "item-1", "menut-l1a")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.ID).To(Equal("item-1"))
			Expect(item.Assets.Keys()).To(Equal([]string{"image"}))
			Expect(item.PlatformDesignator()).To(Equal("2023-174B"))
		})

		It("should raise AlreadyExists on the second creation", func() {
			Expect(client.CreateItem(ctx, newTestItem("item-1", "menut-l1a"))).To(Succeed())
			err = client.CreateItem(ctx, newTestItem("item-1", "menut-l1a"))
			var exists service.ErrAlreadyExists
			Expect(errors.As(err, &exists)).To(BeTrue())
			Expect(exists.ID).To(Equal("item-1"))
		})

		It("should replace an existing item with AddItem", func() {
			Expect(client.AddItem(ctx, newTestItem("item-1", "menut-l1a"))).To(Succeed())
			item := newTestItem("item-1", "menut-l1a")
			item.SetProperty(common.TagCreator, "someone")
			Expect(client.AddItem(ctx, item)).To(Succeed())

			stored, ok := server.Item("menut-l1a", "item-1")
			Expect(ok).To(BeTrue())
			Expect(stored.Property(common.TagCreator)).To(Equal("someone"))
			Expect(server.ItemWrites()).To(Equal(2))
		})

		It("should refuse an item whose parent link targets another collection", func() {
			item := newTestItem("item-1", "menut-l1a")
			item.Links = append(item.Links, common.Link{Href: "https://stac/collections/other", Rel: common.RelParent})
			err = client.AddItem(ctx, item)
			var verr common.ErrValidation
			Expect(err).To(HaveOccurred())
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(server.ItemWrites()).To(Equal(0))
		})

		It("should refuse an item without collection", func() {
			err = client.CreateItem(ctx, newTestItem("item-1", ""))
			var verr common.ErrValidation
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("collection"))
		})

		It("should validate the item with the validator", func() {
			client = newClient(testToken, stac.WithValidator(common.DefaultItemValidator))
			item := newTestItem("item-1", "menut-l1a")
			delete(item.Properties, common.TagPlatformDesignator)
			err = client.AddItem(ctx, item)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(common.TagPlatformDesignator))
		})

		It("should raise NotFound when the collection does not exist", func() {
			err = client.AddItem(ctx, newTestItem("item-1", "unknown"))
			Expect(service.IsNotFound(err)).To(BeTrue())
		})
	})

	Context("updating and deleting an item", func() {
		BeforeEach(func() {
			server.AddItem(newTestItem("item-1", "menut-l1a"))
		})

		It("should patch the properties", func() {
			err = client.UpdateItem(ctx, "item-1", "menut-l1a", common.ItemUpdate{
				Properties: map[string]interface{}{common.TagDatetime: "2024-06-01T00:00:00Z", common.TagSeason: "Summer"},
			})
			Expect(err).NotTo(HaveOccurred())
			item, err := client.FetchItem(ctx, "item-1", "menut-l1a")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Property(common.TagSeason)).To(Equal("Summer"))
			Expect(item.Property(common.TagPlatformDesignator)).To(Equal("2023-174B"))
		})

		It("should refuse an update without datetime", func() {
			err = client.UpdateItem(ctx, "item-1", "menut-l1a", common.ItemUpdate{Properties: map[string]interface{}{"a": "b"}})
			var verr common.ErrValidation
			Expect(errors.As(err, &verr)).To(BeTrue())
		})

		It("should delete the item", func() {
			Expect(client.DeleteItem(ctx, "item-1", "menut-l1a")).To(Succeed())
			_, err = client.FetchItem(ctx, "item-1", "menut-l1a")
			Expect(service.IsNotFound(err)).To(BeTrue())
			err = client.DeleteItem(ctx, "item-1", "menut-l1a")
			Expect(service.IsNotFound(err)).To(BeTrue())
		})
	})

	Context("authentication", func() {
		It("should raise Unauthorized with a wrong token", func() {
			client = newClient("wrong")
			_, err = client.FetchItem(ctx, "item-1", "menut-l1a")
			var uerr service.ErrUnauthorized
			Expect(errors.As(err, &uerr)).To(BeTrue())
			Expect(uerr.Status).To(Equal(403))
			Expect(uerr.Details).To(HaveLen(1))
			Expect(uerr.Details[0].Message).To(Equal("invalid token"))
		})
	})
})

var _ = Describe("Search", func() {
	BeforeEach(func() {
		server.PageSize = 2
		server.AddCollection(newTestCollection("menut-l1a"))
		server.AddCollection(newTestCollection("mantis-l1a"))
		for i := 0; i < 5; i++ {
			server.AddItem(newTestItem(fmt.Sprintf("menut-%d", i), "menut-l1a"))
		}
		item := newTestItem("mantis-0", "mantis-l1a")
		item.SetProperty(common.TagSeason, "Winter")
		server.AddItem(item)
	})

	collect := func(params common.SearchParameters) ([]string, error) {
		var ids []string
		for item, err := range client.SearchItems(ctx, params) {
			if err != nil {
				return ids, err
			}
			ids = append(ids, item.ID)
		}
		return ids, nil
	}

	It("should follow the next links", func() {
		ids, err := collect(common.SearchParameters{Collections: []string{"menut-l1a"}, Limit: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]string{"menut-0", "menut-1", "menut-2", "menut-3", "menut-4"}))
	})

	It("should be restartable", func() {
		params := common.SearchParameters{Collections: []string{"menut-l1a"}, Limit: 2}
		seq := client.SearchItems(ctx, params)
		n := 0
		for range seq {
			n++
			break
		}
		Expect(n).To(Equal(1))
		for range seq {
			n++
		}
		Expect(n).To(Equal(6))
	})

	It("should filter with the query", func() {
		ids, err := collect(common.SearchParameters{Query: map[string]map[string]interface{}{
			common.TagSeason: {"in": []interface{}{"Winter"}},
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]string{"mantis-0"}))
	})

	It("should search the catalog with user-friendly parameters", func() {
		var ids []string
		for item, err := range client.SearchCatalog(ctx, common.CatalogSearchParameters{
			StartDate:  "05/15/2024",
			EndDate:    "05/15/2024",
			Satellites: []string{"MANTIS"},
			Seasons:    []common.Season{common.SeasonWinter},
		}, "project-1") {
			Expect(err).NotTo(HaveOccurred())
			ids = append(ids, item.ID)
		}
		Expect(ids).To(Equal([]string{"mantis-0"}))
	})

	It("should yield the validation error", func() {
		_, err := collect(common.SearchParameters{BBox: []float64{1, 2, 3}})
		var verr common.ErrValidation
		Expect(errors.As(err, &verr)).To(BeTrue())
	})

	It("should yield the catalog parameters error", func() {
		for _, err := range client.SearchCatalog(ctx, common.CatalogSearchParameters{StartDate: "2024-05-15"}, "p") {
			Expect(err).To(HaveOccurred())
		}
	})
})

var _ = Describe("Collections", func() {
	It("should create, fetch, update and delete a collection", func() {
		Expect(client.CreateCollection(ctx, newTestCollection("c1"))).To(Succeed())
		err := client.CreateCollection(ctx, newTestCollection("c1"))
		Expect(service.IsAlreadyExists(err)).To(BeTrue())

		Expect(client.UpdateCollection(ctx, "c1", common.CollectionUpdate{Title: "Collection 1", Keywords: []string{"sar"}})).To(Succeed())
		c, err := client.FetchCollection(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Title).To(Equal("Collection 1"))
		Expect(c.Keywords).To(Equal([]string{"sar"}))
		Expect(c.License).To(Equal("CC-BY-4.0"))

		Expect(client.DeleteCollection(ctx, "c1")).To(Succeed())
		_, err = client.FetchCollection(ctx, "c1")
		Expect(service.IsNotFound(err)).To(BeTrue())
	})

	It("should fetch all the collections", func() {
		for i := 0; i < 25; i++ {
			server.AddCollection(newTestCollection(fmt.Sprintf("c%02d", i)))
		}
		var ids []string
		for c, err := range client.FetchAllCollections(ctx) {
			Expect(err).NotTo(HaveOccurred())
			ids = append(ids, c.ID)
		}
		Expect(ids).To(HaveLen(25))
		Expect(ids[0]).To(Equal("c00"))
		Expect(ids[24]).To(Equal("c24"))
	})

	It("should normalize the deprecated licenses", func() {
		client = newClient(testToken, stac.WithLicenseValidation())
		c := newTestCollection("c1")
		c.License = "proprietary"
		err := client.CreateCollection(ctx, c)
		Expect(err).To(HaveOccurred())

		c.Links = append(c.Links, common.Link{Href: "https://example.com/license", Rel: common.RelLicense})
		Expect(client.CreateCollection(ctx, c)).To(Succeed())
		fetched, err := client.FetchCollection(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(fetched.License).To(Equal("other"))
	})
})
